package server

import (
	"fmt"
	"net/http"
	"time"

	"deyemon/internal/config"
	"deyemon/internal/core/service"

	_ "github.com/joho/godotenv/autoload"
)

type Server struct {
	port    uint
	httpLog bool

	aggregator *service.SnapshotAggregator
	outages    *service.OutageTracker
	weather    *service.WeatherCache
	phases     *service.PhaseRecorder
}

func NewServer(cfg config.Config, aggregator *service.SnapshotAggregator, outages *service.OutageTracker,
	weather *service.WeatherCache, phases *service.PhaseRecorder) *http.Server {
	s := &Server{
		port:       cfg.Port,
		httpLog:    cfg.HttpLog,
		aggregator: aggregator,
		outages:    outages,
		weather:    weather,
		phases:     phases,
	}

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}
