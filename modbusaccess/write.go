package modbusaccess

import (
	"fmt"

	"github.com/grid-x/modbus"
)

// WriteRegister encodes val per register's data type and writes it to client
// at register.StartAddr.
func WriteRegister(client modbus.Client, register Register, val interface{}) error {
	raw := register.DataType.toBytesFunc(val)
	if _, err := client.WriteMultipleRegisters(register.StartAddr, register.DataType.dataLength/2, raw); err != nil {
		return fmt.Errorf("write register %d: %w", register.StartAddr, err)
	}
	return nil
}
