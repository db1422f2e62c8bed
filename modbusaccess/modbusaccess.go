// Package modbusaccess maps named register blocks onto typed values, so the
// setpoint read-back verification can talk about "ActivePowerSetpoint"
// rather than raw register offsets.
package modbusaccess

import (
	"encoding/binary"
)

// Type describes how a register's raw bytes map onto a Go value.
type Type struct {
	name          string
	dataLength    uint16
	fromBytesFunc func([]byte) interface{}
	toBytesFunc   func(interface{}) []byte
}

// FromBytes decodes raw register bytes into the Go value this Type
// represents.
func (t Type) FromBytes(raw []byte) interface{} {
	return t.fromBytesFunc(raw)
}

// ToBytes encodes val into the raw register bytes this Type represents.
func (t Type) ToBytes(val interface{}) []byte {
	return t.toBytesFunc(val)
}

// Length returns the number of bytes this Type occupies on the wire.
func (t Type) Length() uint16 {
	return t.dataLength
}

// Int32Type is a 32-bit signed integer spread across two holding registers,
// used by the inverter for its active power setpoint (in watts).
var Int32Type = Type{
	name:       "int32",
	dataLength: 4,
	fromBytesFunc: func(b []byte) interface{} {
		return int32(binary.BigEndian.Uint32(b))
	},
	toBytesFunc: func(val interface{}) []byte {
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, uint32(val.(int32)))
		return b
	},
}

// Uint16Type is a single 16-bit unsigned integer, used for the setpoint
// writer's control-mode, heartbeat-timeout and command-heartbeat registers.
var Uint16Type = Type{
	name:       "uint16",
	dataLength: 2,
	fromBytesFunc: func(b []byte) interface{} {
		return binary.BigEndian.Uint16(b)
	},
	toBytesFunc: func(val interface{}) []byte {
		b := make([]byte, 2)
		binary.BigEndian.PutUint16(b, val.(uint16))
		return b
	},
}

// Scaler provides whatever context a register's ScalingFunc needs to convert
// a raw register value into its physical quantity (e.g. a configured CT
// ratio). The setpoint registers this package defines don't need one, but
// the hook is kept so future registers with non-trivial scaling can use it
// without reshaping the polling code.
type Scaler interface{}

type valueScalingFunc func(Scaler, interface{}) interface{}

// Register describes a single named value within a RegisterBlock.
type Register struct {
	StartAddr   uint16
	DataType    Type
	ScalingFunc valueScalingFunc
}

// RegisterBlock is a contiguous span of holding registers read or written in
// one modbus transaction.
type RegisterBlock struct {
	Name         string
	StartAddr    uint16
	NumRegisters uint16
	Registers    map[string]Register
}
