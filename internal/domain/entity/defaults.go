package entity

import "time"

// DefaultLowStockThreshold la parte debe reordenarse cuando baja de este valor.
const DefaultLowStockThreshold = 1

// DefaultPartType identificadores de la taxonomía sembrada por el sistema.
// Los valores son los PartTypeID persistidos; no reordenar.
type DefaultPartType int64

const (
	Resistor DefaultPartType = iota + 1
	Capacitor
	Inductor
	Diode
	LED
	Transistor
	Relay
	Transformer
	Crystal
	Sensor
	Switch
	Cable
	Connector
	IC
	Hardware
	Other
	OpAmp
	Amplifier
	Memory
	Logic
	Interface
	Microcontroller
	Clock
	ADC
	VoltageRegulator
	EnergyMetering
	LedDriver
	MOSFET
	IGBT
	JFET
	SCR
	DIAC
	TRIAC
)

var defaultPartTypeNames = [...]string{
	"Resistor", "Capacitor", "Inductor", "Diode", "LED", "Transistor", "Relay",
	"Transformer", "Crystal", "Sensor", "Switch", "Cable", "Connector", "IC",
	"Hardware", "Other", "OpAmp", "Amplifier", "Memory", "Logic", "Interface",
	"Microcontroller", "Clock", "ADC", "VoltageRegulator", "EnergyMetering",
	"LedDriver", "MOSFET", "IGBT", "JFET", "SCR", "DIAC", "TRIAC",
}

// defaultPartTypeParents tabla fija hijo → padre. Bosque cerrado, no editable.
var defaultPartTypeParents = map[DefaultPartType]DefaultPartType{
	OpAmp:            IC,
	Amplifier:        IC,
	Memory:           IC,
	Logic:            IC,
	Interface:        IC,
	Microcontroller:  IC,
	Clock:            IC,
	ADC:              IC,
	VoltageRegulator: IC,
	EnergyMetering:   IC,
	LedDriver:        IC,
	MOSFET:           Transistor,
	IGBT:             Transistor,
	JFET:             Transistor,
	SCR:              Transistor,
	DIAC:             Transistor,
	TRIAC:            Transistor,
}

// MaxDefaultPartTypeID mayor identificador reservado por la taxonomía del sistema.
const MaxDefaultPartTypeID = int64(TRIAC)

func (t DefaultPartType) String() string {
	if t < 1 || int(t) > len(defaultPartTypeNames) {
		return "Unknown"
	}
	return defaultPartTypeNames[t-1]
}

// Parent devuelve el tipo padre declarado, si existe.
func (t DefaultPartType) Parent() (DefaultPartType, bool) {
	p, ok := defaultPartTypeParents[t]
	return p, ok
}

// DefaultPartTypes construye los registros globales de la taxonomía en orden de id.
func DefaultPartTypes(now time.Time) []*PartType {
	out := make([]*PartType, 0, len(defaultPartTypeNames))
	for i := range defaultPartTypeNames {
		t := DefaultPartType(i + 1)
		pt := &PartType{
			PartTypeID:     int64(t),
			Name:           t.String(),
			DateCreatedUTC: now,
		}
		if parent, ok := t.Parent(); ok {
			id := int64(parent)
			pt.ParentPartTypeID = &id
		}
		out = append(out, pt)
	}
	return out
}
