package config

import (
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap/zapcore"
)

type Config struct {
	LogLevel zapcore.Level
	Inverter InverterConfig `mapstructure:"inverter"`
	Sampler  SamplerConfig  `mapstructure:"sampler"`
	Weather  WeatherConfig  `mapstructure:"weather"`
	Outage   OutageConfig   `mapstructure:"outage"`
	Phases   PhaseConfig    `mapstructure:"phases"`
	MQTT     MQTTConfig     `mapstructure:"mqtt"`
	Port     uint           `mapstructure:"port"`
	HttpLog  bool           `mapstructure:"http_log"`
}

type InverterConfig struct {
	Host          string `mapstructure:"host"`
	Port          uint   `mapstructure:"port"`
	UnitId        uint   `mapstructure:"unit_id"`
	TimeoutMillis uint32 `mapstructure:"timeout_millis"`
}

type SamplerConfig struct {
	IntervalSeconds uint32 `mapstructure:"interval_seconds"`
	BufferSize      int    `mapstructure:"buffer_size"`
}

type WeatherConfig struct {
	Enabled             bool    `mapstructure:"enabled"`
	Latitude            float64 `mapstructure:"latitude"`
	Longitude           float64 `mapstructure:"longitude"`
	PollIntervalMinutes uint32  `mapstructure:"poll_interval_minutes"`
	TimeoutSeconds      uint32  `mapstructure:"timeout_seconds"`
}

type OutageConfig struct {
	OfflineThresholdWatts float64 `mapstructure:"offline_threshold_watts"`
	DebounceSamples       int     `mapstructure:"debounce_samples"`
	HistoryFile           string  `mapstructure:"history_file"`
}

type PhaseConfig struct {
	StatsFile string `mapstructure:"stats_file"`
}

type MQTTConfig struct {
	Enabled               bool   `mapstructure:"enabled"`
	Host                  string `mapstructure:"host"`
	Port                  int    `mapstructure:"port"`
	Username              string `mapstructure:"username"`
	Password              string `mapstructure:"password"`
	BaseTopic             string `mapstructure:"base_topic"`
	PublishIntervalMillis uint32 `mapstructure:"publish_interval_millis"`
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}
