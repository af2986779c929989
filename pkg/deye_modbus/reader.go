package deye_modbus

import (
	"fmt"
	"time"

	"github.com/simonvetter/modbus"
	"go.uber.org/zap"
)

// RegisterReader is the raw transport boundary: single holding-register reads
// against the inverter's data logger. Implementations are NOT safe for
// concurrent use; callers must serialize every round-trip.
type RegisterReader interface {
	Open() error
	Close() error
	ReadRegister(addr uint16) (uint16, error)
}

// LinkError wraps a transport failure or malformed response. It is never
// retried at this layer; the caller decides fallback policy.
type LinkError struct {
	Addr uint16
	Err  error
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("deye_modbus: register %d: %s", e.Addr, e.Err)
}

func (e *LinkError) Unwrap() error {
	return e.Err
}

type tcpRegisterReader struct {
	client *modbus.ModbusClient
	logger *zap.Logger
}

func (r *tcpRegisterReader) Open() error {
	return r.client.Open()
}

func (r *tcpRegisterReader) Close() error {
	return r.client.Close()
}

func (r *tcpRegisterReader) ReadRegister(addr uint16) (uint16, error) {
	start := time.Now()
	value, err := r.client.ReadRegister(addr, modbus.HOLDING_REGISTER)
	if err != nil {
		return 0, &LinkError{Addr: addr, Err: err}
	}
	r.logger.Debug("modbus read",
		zap.Uint16("addr", addr),
		zap.Uint16("value", value),
		zap.Int64("millis", time.Since(start).Milliseconds()))
	return value, nil
}

// CreateTCPRegisterReader builds a Modbus TCP reader for the given data
// logger. The timeout bounds every register round-trip.
func CreateTCPRegisterReader(host string, port uint, unitID uint8, timeout time.Duration, logger *zap.Logger) (RegisterReader, error) {
	client, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:     fmt.Sprintf("tcp://%s:%d", host, port),
		Timeout: timeout,
	})
	if err != nil {
		return nil, err
	}
	if unitID > 0 {
		if err := client.SetUnitId(unitID); err != nil {
			return nil, err
		}
	}
	return &tcpRegisterReader{
		client: client,
		logger: logger.With(zap.String("component", "modbus")),
	}, nil
}
