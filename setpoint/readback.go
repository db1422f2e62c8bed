package setpoint

import (
	"time"

	gridxmodbus "github.com/grid-x/modbus"

	"github.com/greenhaus/chargesched/modbusaccess"
)

var statusBlock = modbusaccess.RegisterBlock{
	Name:         "inverter_power_status",
	StartAddr:    1040,
	NumRegisters: 2,
	Registers: map[string]modbusaccess.Register{
		"ActivePowerSetpoint": {StartAddr: 1040, DataType: modbusaccess.Int32Type},
	},
}

// readbackHandler holds the grid-x modbus connection used purely for
// read-back verification -- a separate library and connection from the
// simonvetter-backed write path, so a stuck write connection can't also
// stall verification.
type readbackHandler struct {
	handler *gridxmodbus.TCPClientHandler
	client  gridxmodbus.Client
}

func newReadbackHandler(host string) (*readbackHandler, error) {
	handler := gridxmodbus.NewTCPClientHandler(host)
	handler.Timeout = 2 * time.Second
	if err := handler.Connect(); err != nil {
		return nil, err
	}
	return &readbackHandler{handler: handler, client: gridxmodbus.NewClient(handler)}, nil
}

// activeSetpoint polls the inverter's currently applied active power
// setpoint, in watts.
func (r *readbackHandler) activeSetpoint() (int32, error) {
	values, err := modbusaccess.PollBlock(r.client, nil, statusBlock)
	if err != nil {
		return 0, err
	}
	setpoint, _ := values["ActivePowerSetpoint"].(int32)
	return setpoint, nil
}

func (r *readbackHandler) close() {
	r.handler.Close()
}
