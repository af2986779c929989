package service

import (
	"math"
	"time"

	"deyemon/internal/core/domain"
	"deyemon/pkg/deye_modbus"

	"go.uber.org/zap"
)

// socCurve is the piecewise-linear voltage→charge mapping for a 48–56 V
// chemistry. Points must be sorted by voltage.
var socCurve = []struct {
	volts float64
	soc   float64
}{
	{48.0, 0},
	{50.4, 17},
	{51.2, 30},
	{52.0, 50},
	{53.2, 80},
	{53.6, 90},
	{56.0, 100},
}

// VoltageToSOC maps a battery voltage to a state-of-charge percentage.
// Values outside the curve's domain clamp to 0% / 100%.
func VoltageToSOC(volts float64) int {
	if volts <= socCurve[0].volts {
		return 0
	}
	last := socCurve[len(socCurve)-1]
	if volts >= last.volts {
		return 100
	}
	for i := 1; i < len(socCurve); i++ {
		lo, hi := socCurve[i-1], socCurve[i]
		if volts <= hi.volts {
			frac := (volts - lo.volts) / (hi.volts - lo.volts)
			return int(math.Round(lo.soc + frac*(hi.soc-lo.soc)))
		}
	}
	return 100
}

type batterySample struct {
	at    time.Time
	volts float64
}

// BatterySampler keeps a fixed-size rolling window of battery voltage
// readings and exposes their mean. A reading of exactly zero volts is a
// communication glitch and is discarded without touching the buffer.
//
// The buffer is guarded by the link's mutex, so sampling and any other
// channel use are mutually exclusive.
type BatterySampler struct {
	link   *InverterLink
	buf    []batterySample
	size   int
	logger *zap.Logger
	now    func() time.Time
}

func NewBatterySampler(link *InverterLink, bufferSize int, logger *zap.Logger) *BatterySampler {
	return &BatterySampler{
		link:   link,
		buf:    make([]batterySample, 0, bufferSize),
		size:   bufferSize,
		logger: logger.With(zap.String("component", "battery_sampler")),
		now:    time.Now,
	}
}

// Tick performs one sampling pass: read the battery-voltage register and
// push the value into the rolling buffer, evicting the oldest entry at
// capacity. Failures are logged and leave the buffer unchanged; the loop
// continues on its next scheduled interval.
func (s *BatterySampler) Tick() {
	s.link.mu.Lock()
	defer s.link.mu.Unlock()

	values, err := s.link.readValues(deye_modbus.RegBatteryVoltage)
	if err != nil {
		s.logger.Warn("battery sample read failed", zap.Error(err))
		return
	}
	volts := values[deye_modbus.RegBatteryVoltage]
	if volts == 0 {
		// a real battery never reports exactly zero volts under load
		s.logger.Debug("discarding zero-voltage glitch")
		return
	}
	if len(s.buf) >= s.size {
		s.buf = s.buf[1:]
	}
	s.buf = append(s.buf, batterySample{at: s.now(), volts: volts})
}

// Voltage returns the arithmetic mean of the buffered valid samples.
// With fewer than the target window of readings it averages whatever is
// present; ErrUnavailable when the buffer is empty.
func (s *BatterySampler) Voltage() (float64, error) {
	s.link.mu.Lock()
	defer s.link.mu.Unlock()

	if len(s.buf) == 0 {
		return 0, domain.ErrUnavailable
	}
	var sum float64
	for _, sample := range s.buf {
		sum += sample.volts
	}
	return sum / float64(len(s.buf)), nil
}

// SOC maps the averaged voltage through the charge curve.
func (s *BatterySampler) SOC() (int, error) {
	volts, err := s.Voltage()
	if err != nil {
		return 0, err
	}
	return VoltageToSOC(volts), nil
}

// Len reports the number of buffered valid samples.
func (s *BatterySampler) Len() int {
	s.link.mu.Lock()
	defer s.link.mu.Unlock()
	return len(s.buf)
}
