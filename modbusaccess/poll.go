package modbusaccess

import (
	"fmt"
	"maps"

	"github.com/grid-x/modbus"
)

// PollBlocks reads every block in blocks from client and merges the parsed
// values into a single map keyed by register name.
func PollBlocks(client modbus.Client, scaler Scaler, blocks []RegisterBlock) (map[string]interface{}, error) {
	all := make(map[string]interface{})

	for _, block := range blocks {
		values, err := PollBlock(client, scaler, block)
		if err != nil {
			return nil, fmt.Errorf("poll block %q: %w", block.Name, err)
		}
		maps.Copy(all, values)
	}

	return all, nil
}

// PollBlock reads a single register block from client and decodes each of
// its named registers.
func PollBlock(client modbus.Client, scaler Scaler, block RegisterBlock) (map[string]interface{}, error) {
	raw, err := client.ReadHoldingRegisters(block.StartAddr, block.NumRegisters)
	if err != nil {
		return nil, fmt.Errorf("read holding registers: %w", err)
	}

	values := make(map[string]interface{}, len(block.Registers))
	for name, reg := range block.Registers {
		offset := (int(reg.StartAddr) - int(block.StartAddr)) * 2
		if offset < 0 {
			return nil, fmt.Errorf("register %q starts before its block", name)
		}
		end := offset + int(reg.DataType.dataLength)
		if end > len(raw) {
			return nil, fmt.Errorf("register %q extends past its block", name)
		}

		val := reg.DataType.fromBytesFunc(raw[offset:end])
		if reg.ScalingFunc != nil {
			val = reg.ScalingFunc(scaler, val)
		}
		values[name] = val
	}

	return values, nil
}
