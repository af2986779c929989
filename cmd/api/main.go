package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"deyemon/internal/adapter/mqtt"
	"deyemon/internal/adapter/store"
	"deyemon/internal/adapter/weather"
	"deyemon/internal/config"
	"deyemon/internal/core/service"
	"deyemon/internal/server"
	"deyemon/pkg/deye_modbus"

	"github.com/carlmjohnson/versioninfo"
	"github.com/lmittmann/tint"
	"github.com/reugn/go-quartz/job"
	"github.com/reugn/go-quartz/quartz"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *http.Server, stopBackground func(), done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	stopBackground()

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	// startup logs before zap is configured
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		TimeFormat: time.DateTime,
	})))

	// load and print config
	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		return
	}
	safePrintConfig(*cfg)
	slog.Info("deyemon", "version", versioninfo.Short())

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())
	defer logger.Sync()

	// hardware link
	reader, err := deye_modbus.CreateTCPRegisterReader(cfg.Inverter.Host, cfg.Inverter.Port,
		uint8(cfg.Inverter.UnitId), time.Duration(cfg.Inverter.TimeoutMillis)*time.Millisecond, logger)
	if err != nil {
		logger.Fatal("modbus client", zap.Error(err))
	}
	link := service.NewInverterLink(reader, logger)
	if err := link.Open(); err != nil {
		logger.Fatal("modbus open", zap.Error(err))
	}
	defer link.Close()

	// core services
	sampler := service.NewBatterySampler(link, cfg.Sampler.BufferSize, logger)
	outageStore := store.NewOutageHistoryStore(cfg.Outage.HistoryFile)
	outages := service.NewOutageTracker(outageStore, cfg.Outage.OfflineThresholdWatts, cfg.Outage.DebounceSamples, logger)
	phaseStore := store.NewPhaseStatsStore(cfg.Phases.StatsFile)
	phases := service.NewPhaseRecorder(phaseStore, logger)

	weatherClient := weather.NewClient(cfg.Weather.Latitude, cfg.Weather.Longitude,
		time.Duration(cfg.Weather.TimeoutSeconds)*time.Second)
	weatherCache := service.NewWeatherCache(weatherClient, logger)

	aggregator := service.NewSnapshotAggregator(link, sampler, outages, weatherCache, phases, logger)

	// optional MQTT publisher
	var publisher *mqtt.Publisher
	if cfg.MQTT.Enabled {
		publisher = mqtt.NewPublisher(cfg, logger)
		if err := publisher.Connect(); err != nil {
			logger.Fatal("mqtt connect", zap.Error(err))
		}
		defer publisher.Close()
	}

	// background sampling loops
	schedCtx, cancelSched := context.WithCancel(context.Background())
	sched := quartz.NewStdScheduler()
	sched.Start(schedCtx)

	if err := scheduleJobs(schedCtx, sched, cfg, sampler, weatherCache, aggregator, publisher); err != nil {
		logger.Fatal("scheduler", zap.Error(err))
	}

	apiServer := server.NewServer(*cfg, aggregator, outages, weatherCache, phases)

	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	go gracefulShutdown(apiServer, func() {
		sched.Stop()
		cancelSched()
	}, done)

	err = apiServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")
}

func scheduleJobs(ctx context.Context, sched quartz.Scheduler, cfg *config.Config,
	sampler *service.BatterySampler, weatherCache *service.WeatherCache,
	aggregator *service.SnapshotAggregator, publisher *mqtt.Publisher) error {

	batteryJob := job.NewFunctionJob(func(ctx context.Context) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		sampler.Tick()
		return true, nil
	})
	err := sched.ScheduleJob(quartz.NewJobDetail(batteryJob, quartz.NewJobKey("battery_sampler")),
		quartz.NewSimpleTrigger(time.Duration(cfg.Sampler.IntervalSeconds)*time.Second))
	if err != nil {
		return err
	}

	if cfg.Weather.Enabled {
		// prime the cache so the first snapshot already has weather
		go weatherCache.Refresh(ctx)

		weatherJob := job.NewFunctionJob(func(ctx context.Context) (bool, error) {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			weatherCache.Refresh(ctx)
			return true, nil
		})
		err = sched.ScheduleJob(quartz.NewJobDetail(weatherJob, quartz.NewJobKey("weather_poller")),
			quartz.NewSimpleTrigger(time.Duration(cfg.Weather.PollIntervalMinutes)*time.Minute))
		if err != nil {
			return err
		}
	}

	if publisher != nil {
		publishJob := job.NewFunctionJob(func(ctx context.Context) (bool, error) {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			snap, err := aggregator.Snapshot()
			if err != nil {
				// logged by the aggregator; retried on the next interval
				return false, nil
			}
			return true, publisher.PublishSnapshot(snap)
		})
		err = sched.ScheduleJob(quartz.NewJobDetail(publishJob, quartz.NewJobKey("mqtt_publisher")),
			quartz.NewSimpleTrigger(time.Duration(cfg.MQTT.PublishIntervalMillis)*time.Millisecond))
		if err != nil {
			return err
		}
	}

	return nil
}

func initConfig() (*config.Config, error) {

	// alias PORT => DEYEMON_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("DEYEMON_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("deyemon")
	viper.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	// parse log level
	switch viper.GetString("log_level") {
	case "trace":
		cfg.LogLevel = zap.DebugLevel
	case "debug":
		cfg.LogLevel = zap.DebugLevel
	case "info":
		cfg.LogLevel = zap.InfoLevel
	case "error":
		cfg.LogLevel = zap.ErrorLevel
	case "warn":
		cfg.LogLevel = zap.WarnLevel
	case "fatal":
		cfg.LogLevel = zap.FatalLevel
	default:
		cfg.LogLevel = zap.InfoLevel
	}

	// check bounds
	if cfg.Inverter.Host == "" {
		return nil, errors.New("config param inverter.host is required")
	}
	if cfg.Inverter.TimeoutMillis < 100 {
		return nil, errors.New("config param inverter.timeout_millis should be >= 100")
	}
	if cfg.Sampler.IntervalSeconds < 1 {
		return nil, errors.New("config param sampler.interval_seconds should be >= 1")
	}
	if cfg.Sampler.BufferSize < 1 {
		return nil, errors.New("config param sampler.buffer_size should be >= 1")
	}
	if cfg.Weather.Enabled && cfg.Weather.PollIntervalMinutes < 1 {
		return nil, errors.New("config param weather.poll_interval_minutes should be >= 1")
	}
	if cfg.Outage.OfflineThresholdWatts < 0 {
		return nil, errors.New("config param outage.offline_threshold_watts should be >= 0")
	}
	if cfg.Outage.DebounceSamples < 1 {
		return nil, errors.New("config param outage.debounce_samples should be >= 1")
	}
	if cfg.MQTT.Enabled {
		if cfg.MQTT.Host == "" {
			return nil, errors.New("config param mqtt.host is required when mqtt is enabled")
		}
		if cfg.MQTT.PublishIntervalMillis < 1000 {
			return nil, errors.New("config param mqtt.publish_interval_millis should be >= 1000")
		}
		baseTopic, err := config.CheckMQTTTopic(cfg.MQTT.BaseTopic)
		if err != nil {
			return nil, errors.New("invalid base topic. can only contain letters, numbers and underscores")
		}
		cfg.MQTT.BaseTopic = baseTopic
	}

	return &cfg, nil
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "info")
	viper.SetDefault("inverter.port", 8899)
	viper.SetDefault("inverter.unit_id", 1)
	viper.SetDefault("inverter.timeout_millis", 10000)
	viper.SetDefault("sampler.interval_seconds", 10)
	viper.SetDefault("sampler.buffer_size", 6)
	viper.SetDefault("weather.enabled", true)
	viper.SetDefault("weather.poll_interval_minutes", 15)
	viper.SetDefault("weather.timeout_seconds", 10)
	viper.SetDefault("outage.offline_threshold_watts", 1)
	viper.SetDefault("outage.debounce_samples", 1)
	viper.SetDefault("outage.history_file", "outage_history.json")
	viper.SetDefault("phases.stats_file", "phase_stats.json")
	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.port", 1883)
	viper.SetDefault("mqtt.base_topic", "deyemon")
	viper.SetDefault("mqtt.publish_interval_millis", 10000)
	viper.SetDefault("port", 8080)
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	slog.Info("Using", "config", cfg)
}
