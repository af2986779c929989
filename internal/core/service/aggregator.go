package service

import (
	"errors"
	"time"

	"deyemon/internal/core/domain"
	"deyemon/pkg/deye_modbus"

	"go.uber.org/zap"
)

// snapshotRegisters is the full register set read on every aggregation pass.
var snapshotRegisters = []uint16{
	deye_modbus.RegDailyPV,
	deye_modbus.RegPV1Power,
	deye_modbus.RegPV2Power,
	deye_modbus.RegDailyGridImport,
	deye_modbus.RegDailyGridExport,
	deye_modbus.RegDailyLoad,
	deye_modbus.RegDCTemp,
	deye_modbus.RegHeatsinkTemp,
	deye_modbus.RegBatteryVoltage,
	deye_modbus.RegBatteryCurrent,
	deye_modbus.RegBatterySOC,
	deye_modbus.RegGridVoltage,
	deye_modbus.RegGridPower,
	deye_modbus.RegVoltageL1,
	deye_modbus.RegVoltageL2,
	deye_modbus.RegVoltageL3,
	deye_modbus.RegLoadL1,
	deye_modbus.RegLoadL2,
	deye_modbus.RegLoadL3,
	deye_modbus.RegLoadPower,
}

// SnapshotAggregator composes the caller-visible snapshot: one authoritative
// register read through the link, smoothed battery substitution, grid feed
// into the outage tracker, weather attach. It owns no state of its own.
type SnapshotAggregator struct {
	link    *InverterLink
	battery *BatterySampler
	outages *OutageTracker
	weather *WeatherCache
	phases  *PhaseRecorder
	logger  *zap.Logger
	now     func() time.Time
}

func NewSnapshotAggregator(link *InverterLink, battery *BatterySampler, outages *OutageTracker,
	weather *WeatherCache, phases *PhaseRecorder, logger *zap.Logger) *SnapshotAggregator {
	return &SnapshotAggregator{
		link:    link,
		battery: battery,
		outages: outages,
		weather: weather,
		phases:  phases,
		logger:  logger.With(zap.String("component", "aggregator")),
		now:     time.Now,
	}
}

// Snapshot performs one aggregation pass. If the underlying read fails the
// pass fails as a whole, without retries or fabricated values; the caller
// decides whether to surface a stale previous snapshot or an explicit
// unavailable state.
func (a *SnapshotAggregator) Snapshot() (*domain.Snapshot, error) {
	values, err := a.link.ReadValues(snapshotRegisters...)
	if err != nil {
		a.logger.Warn("snapshot read failed", zap.Error(err))
		return nil, errors.Join(domain.ErrUnavailable, err)
	}

	snap := &domain.Snapshot{
		Timestamp: a.now(),

		PV1Power: values[deye_modbus.RegPV1Power],
		PV2Power: values[deye_modbus.RegPV2Power],

		BatteryVoltage: values[deye_modbus.RegBatteryVoltage],
		BatteryCurrent: values[deye_modbus.RegBatteryCurrent],
		BatterySOC:     int(values[deye_modbus.RegBatterySOC]),

		GridVoltage: values[deye_modbus.RegGridVoltage],
		GridPower:   values[deye_modbus.RegGridPower],

		LoadPower: values[deye_modbus.RegLoadPower],
		LoadL1:    values[deye_modbus.RegLoadL1],
		LoadL2:    values[deye_modbus.RegLoadL2],
		LoadL3:    values[deye_modbus.RegLoadL3],
		VoltageL1: values[deye_modbus.RegVoltageL1],
		VoltageL2: values[deye_modbus.RegVoltageL2],
		VoltageL3: values[deye_modbus.RegVoltageL3],

		DCTemp:       values[deye_modbus.RegDCTemp],
		HeatsinkTemp: values[deye_modbus.RegHeatsinkTemp],

		DailyPV:         values[deye_modbus.RegDailyPV],
		DailyGridImport: values[deye_modbus.RegDailyGridImport],
		DailyGridExport: values[deye_modbus.RegDailyGridExport],
		DailyLoad:       values[deye_modbus.RegDailyLoad],
	}
	snap.PVTotalPower = snap.PV1Power + snap.PV2Power

	// substitute the smoothed battery values when available, keep the raw
	// single-read values as fallback
	if volts, err := a.battery.Voltage(); err == nil {
		snap.BatteryVoltage = volts
		snap.BatterySOC = VoltageToSOC(volts)
		snap.BatterySmoothed = true
	}
	snap.BatteryPower = float64(int(snap.BatteryVoltage * snap.BatteryCurrent))
	snap.BatteryStatus = batteryStatus(snap.BatteryCurrent)
	snap.GridStatus = gridStatus(snap.GridPower)

	a.outages.Observe(snap.GridPower, snap.BatterySOC)
	snap.Outage = domain.OutageStatus{
		State:   a.outages.State().String(),
		Current: a.outages.Current(),
	}

	if a.phases != nil {
		a.phases.Record(snap.LoadL1, snap.LoadL2, snap.LoadL3)
	}

	if weather, age, err := a.weather.Get(); err == nil {
		snap.Weather = &weather
		snap.WeatherAgeSeconds = age.Seconds()
	}

	return snap, nil
}

func batteryStatus(current float64) string {
	switch {
	case current > 0:
		return "Charging"
	case current < 0:
		return "Discharging"
	default:
		return "Idle"
	}
}

func gridStatus(power float64) string {
	switch {
	case power > 0:
		return "Importing"
	case power < 0:
		return "Exporting"
	default:
		return "Idle"
	}
}
