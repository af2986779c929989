package server

import (
	"net/http"

	"deyemon/internal/core/domain"

	"github.com/carlmjohnson/versioninfo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	e.GET("/version", s.VersionHandler)

	e.GET("/api/data", s.DataHandler)
	e.GET("/api/weather", s.WeatherHandler)
	e.GET("/api/outages", s.OutagesHandler)
	e.POST("/api/outages", s.AddOutageHandler)
	e.POST("/api/outages/clear", s.ClearOutagesHandler)
	e.GET("/api/phase-stats", s.PhaseStatsHandler)
	e.POST("/api/phase-stats/clear", s.ClearPhaseStatsHandler)

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	return c.String(http.StatusOK, "health_check: OK")
}

func (s *Server) VersionHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"version": versioninfo.Short()})
}

// DataHandler serves the current composed snapshot. A failed acquisition is
// an explicit 503, never fabricated zeros.
func (s *Server) DataHandler(c echo.Context) error {
	snap, err := s.aggregator.Snapshot()
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, snap)
}

func (s *Server) WeatherHandler(c echo.Context) error {
	snap, age, err := s.weather.Get()
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"temperature":  snap.Temperature,
		"weather_code": snap.WeatherCode,
		"category":     snap.Category(),
		"sunrise":      snap.Sunrise,
		"sunset":       snap.Sunset,
		"updated_at":   snap.UpdatedAt,
		"age_seconds":  age.Seconds(),
	})
}

func (s *Server) OutagesHandler(c echo.Context) error {
	events, err := s.outages.History()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"state":   s.outages.State().String(),
		"current": s.outages.Current(),
		"events":  events,
	})
}

func (s *Server) AddOutageHandler(c echo.Context) error {
	var event domain.OutageEvent
	if err := c.Bind(&event); err != nil || event.Start.IsZero() {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid outage event"})
	}
	if err := s.outages.Record(event); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ClearOutagesHandler(c echo.Context) error {
	if err := s.outages.ClearHistory(); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) PhaseStatsHandler(c echo.Context) error {
	summary, err := s.phases.Summary()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, summary)
}

func (s *Server) ClearPhaseStatsHandler(c echo.Context) error {
	if err := s.phases.Clear(); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
