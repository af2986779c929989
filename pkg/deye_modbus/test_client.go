package deye_modbus

import "errors"

// TestRegisterReader is a scriptable in-memory RegisterReader for tests.
// Values maps register addresses to raw values; unmapped addresses read as 0.
// A non-nil Err fails every read. Queue entries, when present for an address,
// are consumed one per read before falling back to Values.
type TestRegisterReader struct {
	Values map[uint16]uint16
	Queue  map[uint16][]uint16
	Err    error
	Opened bool
	Reads  int
}

func CreateTestRegisterReader(values map[uint16]uint16) *TestRegisterReader {
	return &TestRegisterReader{Values: values}
}

func (r *TestRegisterReader) Open() error {
	r.Opened = true
	return nil
}

func (r *TestRegisterReader) Close() error {
	r.Opened = false
	return nil
}

func (r *TestRegisterReader) ReadRegister(addr uint16) (uint16, error) {
	r.Reads++
	if r.Err != nil {
		return 0, &LinkError{Addr: addr, Err: r.Err}
	}
	if q, ok := r.Queue[addr]; ok && len(q) > 0 {
		r.Queue[addr] = q[1:]
		return q[0], nil
	}
	return r.Values[addr], nil
}

// Enqueue appends raw values to be served in order for addr.
func (r *TestRegisterReader) Enqueue(addr uint16, values ...uint16) {
	if r.Queue == nil {
		r.Queue = map[uint16][]uint16{}
	}
	r.Queue[addr] = append(r.Queue[addr], values...)
}

// Fail makes every subsequent read return a LinkError.
func (r *TestRegisterReader) Fail(msg string) {
	r.Err = errors.New(msg)
}

// Recover clears a previous Fail.
func (r *TestRegisterReader) Recover() {
	r.Err = nil
}
