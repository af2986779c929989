package domain

import (
	"errors"
	"time"
)

// ErrUnavailable signals that a value cannot be produced yet (no valid
// samples, no successful fetch). It is an explicit result, never a zero
// value in disguise.
var ErrUnavailable = errors.New("data unavailable")

type OutageState int

const (
	GridOnline OutageState = iota
	GridOffline
)

func (s OutageState) String() string {
	if s == GridOffline {
		return "offline"
	}
	return "online"
}

// OutageEvent is one grid outage. End is nil while the outage is open; once
// closed the event is immutable and appended to the durable history.
type OutageEvent struct {
	Start      time.Time  `json:"start"`
	End        *time.Time `json:"end,omitempty"`
	SOCAtStart int        `json:"soc_at_start"`
}

// DurationSeconds is 0 while the event is still open.
func (e OutageEvent) DurationSeconds() float64 {
	if e.End == nil {
		return 0
	}
	return e.End.Sub(e.Start).Seconds()
}

// WeatherSnapshot is the last-known-good external weather reading. It is
// replaced wholesale on each successful fetch and retained unchanged on
// failure.
type WeatherSnapshot struct {
	Temperature float64   `json:"temperature"`
	WeatherCode int       `json:"weather_code"`
	Sunrise     time.Time `json:"sunrise"`
	Sunset      time.Time `json:"sunset"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Category maps the WMO weather code to a coarse condition bucket.
func (w WeatherSnapshot) Category() string {
	code := w.WeatherCode
	switch {
	case code <= 2:
		return "clear"
	case code == 3:
		return "cloudy"
	case code == 45 || code == 48:
		return "fog"
	case code >= 51 && code <= 67:
		return "rain"
	case code >= 71 && code <= 77:
		return "snow"
	case code >= 80 && code <= 82:
		return "rain"
	case code == 85 || code == 86:
		return "snow"
	case code >= 95:
		return "storm"
	default:
		return "cloudy"
	}
}

// OutageStatus is the tracker's state as seen in a snapshot.
type OutageStatus struct {
	State   string       `json:"state"`
	Current *OutageEvent `json:"current,omitempty"`
}

// Snapshot is the aggregated caller-visible result of one acquisition pass.
// Immutable once constructed.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`

	PV1Power     float64 `json:"pv1_power"`
	PV2Power     float64 `json:"pv2_power"`
	PVTotalPower float64 `json:"pv_total_power"`

	BatteryVoltage  float64 `json:"battery_voltage"`
	BatteryCurrent  float64 `json:"battery_current"`
	BatteryPower    float64 `json:"battery_power"`
	BatterySOC      int     `json:"battery_soc"`
	BatterySmoothed bool    `json:"battery_smoothed"`
	BatteryStatus   string  `json:"battery_status"`

	GridVoltage float64 `json:"grid_voltage"`
	GridPower   float64 `json:"grid_power"`
	GridStatus  string  `json:"grid_status"`

	LoadPower float64 `json:"load_power"`
	LoadL1    float64 `json:"load_l1"`
	LoadL2    float64 `json:"load_l2"`
	LoadL3    float64 `json:"load_l3"`
	VoltageL1 float64 `json:"voltage_l1"`
	VoltageL2 float64 `json:"voltage_l2"`
	VoltageL3 float64 `json:"voltage_l3"`

	DCTemp       float64 `json:"dc_temp"`
	HeatsinkTemp float64 `json:"heatsink_temp"`

	DailyPV         float64 `json:"daily_pv"`
	DailyGridImport float64 `json:"daily_grid_import"`
	DailyGridExport float64 `json:"daily_grid_export"`
	DailyLoad       float64 `json:"daily_load"`

	Outage OutageStatus `json:"outage"`

	Weather           *WeatherSnapshot `json:"weather,omitempty"`
	WeatherAgeSeconds float64          `json:"weather_age_seconds,omitempty"`
}

// PhaseDayStats accumulates per-phase load energy and peaks for one day.
type PhaseDayStats struct {
	L1Wh    float64 `json:"l1_wh"`
	L2Wh    float64 `json:"l2_wh"`
	L3Wh    float64 `json:"l3_wh"`
	Samples int     `json:"samples"`
	L1MaxW  float64 `json:"l1_max"`
	L2MaxW  float64 `json:"l2_max"`
	L3MaxW  float64 `json:"l3_max"`
}

// PhaseStats maps a YYYY-MM-DD day key to that day's accumulated stats.
type PhaseStats map[string]PhaseDayStats

// PhaseDaySummary is the caller-facing daily roll-up with kWh totals and
// per-phase percentage split.
type PhaseDaySummary struct {
	Date     string  `json:"date"`
	L1KWh    float64 `json:"l1_kwh"`
	L2KWh    float64 `json:"l2_kwh"`
	L3KWh    float64 `json:"l3_kwh"`
	TotalKWh float64 `json:"total_kwh"`
	L1MaxW   float64 `json:"l1_max"`
	L2MaxW   float64 `json:"l2_max"`
	L3MaxW   float64 `json:"l3_max"`
	L1Pct    float64 `json:"l1_pct"`
	L2Pct    float64 `json:"l2_pct"`
	L3Pct    float64 `json:"l3_pct"`
}
