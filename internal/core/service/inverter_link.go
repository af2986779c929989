package service

import (
	"sync"

	"deyemon/pkg/deye_modbus"

	"go.uber.org/zap"
)

// InverterLink owns the single hardware channel. The underlying transport is
// half-duplex and not safe for concurrent use, so every round-trip, whether
// from periodic sampling or on-demand aggregation, is serialized through one
// mutex. The same mutex also guards the battery sampler's rolling buffer.
type InverterLink struct {
	mu     sync.Mutex
	reader deye_modbus.RegisterReader
	logger *zap.Logger
}

func NewInverterLink(reader deye_modbus.RegisterReader, logger *zap.Logger) *InverterLink {
	return &InverterLink{
		reader: reader,
		logger: logger.With(zap.String("component", "inverter_link")),
	}
}

// Open establishes the transport connection.
func (l *InverterLink) Open() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reader.Open()
}

// Close releases the transport connection.
func (l *InverterLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reader.Close()
}

// ReadValues reads and decodes the given registers in one lock scope. It
// fails fast on the first transport error; no retries at this layer.
func (l *InverterLink) ReadValues(addrs ...uint16) (map[uint16]float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readValues(addrs...)
}

// readValues requires l.mu to be held.
func (l *InverterLink) readValues(addrs ...uint16) (map[uint16]float64, error) {
	values := make(map[uint16]float64, len(addrs))
	for _, addr := range addrs {
		desc, err := deye_modbus.Descriptor(addr)
		if err != nil {
			return nil, err
		}
		raw, err := l.reader.ReadRegister(addr)
		if err != nil {
			return nil, err
		}
		values[addr] = desc.Decode(raw)
	}
	return values, nil
}
