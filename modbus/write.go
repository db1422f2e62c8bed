package modbus

import (
	"encoding/binary"
	"fmt"

	"github.com/greenhaus/chargesched/modbusaccess"
)

// WriteRegister writes val, encoded per register's data type, to the
// inverter and reconnects on the next call if the write fails.
func (c *Client) WriteRegister(register modbusaccess.Register, val interface{}) error {
	if err := c.reconnectIfNeeded(); err != nil {
		return fmt.Errorf("reconnect: %w", err)
	}

	raw := register.DataType.ToBytes(val)
	regVals := make([]uint16, 0, len(raw)/2)
	for i := 0; i < len(raw); i += 2 {
		regVals = append(regVals, binary.BigEndian.Uint16(raw[i:i+2]))
	}

	if err := c.conn.WriteRegisters(register.StartAddr, regVals); err != nil {
		c.markDirty()
		return fmt.Errorf("write register %d: %w", register.StartAddr, err)
	}

	return nil
}
