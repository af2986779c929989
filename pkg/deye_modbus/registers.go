package deye_modbus

import "fmt"

// Holding register addresses exposed by the Deye data logger.
const (
	RegDailyPV         uint16 = 502
	RegPV1Power        uint16 = 514
	RegPV2Power        uint16 = 515
	RegDailyGridImport uint16 = 520
	RegDailyGridExport uint16 = 521
	RegDailyLoad       uint16 = 526
	RegDCTemp          uint16 = 540
	RegHeatsinkTemp    uint16 = 541
	RegBatteryVoltage  uint16 = 586
	RegBatteryCurrent  uint16 = 587
	RegBatterySOC      uint16 = 588
	RegGridVoltage     uint16 = 598
	RegGridPower       uint16 = 607
	RegVoltageL1       uint16 = 644
	RegVoltageL2       uint16 = 645
	RegVoltageL3       uint16 = 646
	RegLoadL1          uint16 = 650
	RegLoadL2          uint16 = 651
	RegLoadL3          uint16 = 652
	RegLoadPower       uint16 = 653
)

// RegisterDescriptor describes how a raw 16-bit holding register value maps
// to a physical quantity. Offset is applied before Factor.
type RegisterDescriptor struct {
	Addr   uint16
	Label  string
	Unit   string
	Factor float64
	Offset float64
	Signed bool
}

// Decode converts a raw register value into its physical quantity.
// Signed registers are reinterpreted as two's-complement int16 first.
func (d RegisterDescriptor) Decode(raw uint16) float64 {
	var v float64
	if d.Signed {
		v = float64(int16(raw))
	} else {
		v = float64(raw)
	}
	return (v + d.Offset) * d.Factor
}

var registerMap = map[uint16]RegisterDescriptor{
	RegDailyPV:         {Addr: RegDailyPV, Label: "daily_pv", Unit: "kWh", Factor: 0.1},
	RegPV1Power:        {Addr: RegPV1Power, Label: "pv1_power", Unit: "W", Factor: 1},
	RegPV2Power:        {Addr: RegPV2Power, Label: "pv2_power", Unit: "W", Factor: 1},
	RegDailyGridImport: {Addr: RegDailyGridImport, Label: "daily_grid_import", Unit: "kWh", Factor: 0.1},
	RegDailyGridExport: {Addr: RegDailyGridExport, Label: "daily_grid_export", Unit: "kWh", Factor: 0.1},
	RegDailyLoad:       {Addr: RegDailyLoad, Label: "daily_load", Unit: "kWh", Factor: 0.1},
	RegDCTemp:          {Addr: RegDCTemp, Label: "dc_temp", Unit: "°C", Factor: 0.1, Offset: -1000},
	RegHeatsinkTemp:    {Addr: RegHeatsinkTemp, Label: "heatsink_temp", Unit: "°C", Factor: 0.1, Offset: -1000},
	RegBatteryVoltage:  {Addr: RegBatteryVoltage, Label: "battery_voltage", Unit: "V", Factor: 0.01},
	RegBatteryCurrent:  {Addr: RegBatteryCurrent, Label: "battery_current", Unit: "A", Factor: 0.01, Signed: true},
	RegBatterySOC:      {Addr: RegBatterySOC, Label: "battery_soc", Unit: "%", Factor: 1},
	RegGridVoltage:     {Addr: RegGridVoltage, Label: "grid_voltage", Unit: "V", Factor: 0.1},
	RegGridPower:       {Addr: RegGridPower, Label: "grid_power", Unit: "W", Factor: 1, Signed: true},
	RegVoltageL1:       {Addr: RegVoltageL1, Label: "voltage_l1", Unit: "V", Factor: 0.1},
	RegVoltageL2:       {Addr: RegVoltageL2, Label: "voltage_l2", Unit: "V", Factor: 0.1},
	RegVoltageL3:       {Addr: RegVoltageL3, Label: "voltage_l3", Unit: "V", Factor: 0.1},
	RegLoadL1:          {Addr: RegLoadL1, Label: "load_l1", Unit: "W", Factor: 1},
	RegLoadL2:          {Addr: RegLoadL2, Label: "load_l2", Unit: "W", Factor: 1},
	RegLoadL3:          {Addr: RegLoadL3, Label: "load_l3", Unit: "W", Factor: 1},
	RegLoadPower:       {Addr: RegLoadPower, Label: "load_power", Unit: "W", Factor: 1},
}

// Descriptor returns the register descriptor for a known address.
func Descriptor(addr uint16) (RegisterDescriptor, error) {
	d, ok := registerMap[addr]
	if !ok {
		return RegisterDescriptor{}, fmt.Errorf("deye_modbus: no descriptor for register %d", addr)
	}
	return d, nil
}
