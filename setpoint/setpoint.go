// Package setpoint writes the active power setpoint to the inverter's field
// bus, managing the heartbeat and one-time mode configuration the inverter's
// direct power control register expects, then verifies the value latched by
// reading it back over a second, independent modbus connection.
package setpoint

import (
	"log/slog"

	"github.com/greenhaus/chargesched/modbus"
	"github.com/greenhaus/chargesched/modbusaccess"
)

const heartbeatTimeoutSecs = uint16(10)

var (
	heartbeatRegister = modbusaccess.Register{StartAddr: 1034, DataType: modbusaccess.Uint16Type}
	timeoutRegister   = modbusaccess.Register{StartAddr: 1035, DataType: modbusaccess.Uint16Type}
	modeRegister      = modbusaccess.Register{StartAddr: 1036, DataType: modbusaccess.Uint16Type}
	powerRegister     = modbusaccess.Register{StartAddr: 1040, DataType: modbusaccess.Int32Type}

	// directPowerControlMode selects "direct active power control", in which
	// the inverter charges/discharges at exactly the watts it's told rather
	// than chasing its own internal targets.
	directPowerControlMode = uint16(1)
)

// Writer issues active power setpoints to the inverter over modbus,
// following the sign convention negative = charge, positive = discharge,
// zero = idle.
type Writer struct {
	client   *modbus.Client
	readback *readbackHandler

	heartbeatToggle bool
	modeConfigured  bool

	logger *slog.Logger
}

// New connects a Writer to the inverter at host (e.g. "192.168.1.50:502").
// Read-back verification is best-effort: if the verification connection
// can't be established, writes still proceed without it.
func New(host string) (*Writer, error) {
	client, err := modbus.NewClient(host)
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("component", "setpoint")

	readback, err := newReadbackHandler(host)
	if err != nil {
		logger.Warn("setpoint read-back verification unavailable", "error", err)
	}

	return &Writer{client: client, readback: readback, logger: logger}, nil
}

// WriteBatteryPower sets the inverter's active power setpoint, in watts.
// It returns false on any write failure; the control loop must treat a
// false return as "not charging" and retry on the next tick rather than
// assuming the setpoint took effect.
func (w *Writer) WriteBatteryPower(watts int) bool {
	if err := w.client.WriteRegister(heartbeatRegister, w.nextHeartbeat()); err != nil {
		w.logger.Error("write heartbeat failed", "error", err)
		return false
	}

	if err := w.client.WriteRegister(powerRegister, int32(watts)); err != nil {
		w.logger.Error("write power setpoint failed", "watts", watts, "error", err)
		return false
	}

	if !w.modeConfigured {
		if err := w.client.WriteRegister(timeoutRegister, heartbeatTimeoutSecs); err != nil {
			w.logger.Error("write heartbeat timeout failed", "error", err)
			return false
		}
		if err := w.client.WriteRegister(modeRegister, directPowerControlMode); err != nil {
			w.logger.Error("write control mode failed", "error", err)
			return false
		}
		w.modeConfigured = true
	}

	w.verify(watts)

	return true
}

// verify polls the setpoint register back and logs a warning on mismatch.
// It never fails the write: the control loop's contract treats
// WriteBatteryPower's own return value as authoritative.
func (w *Writer) verify(wantWatts int) {
	if w.readback == nil {
		return
	}
	got, err := w.readback.activeSetpoint()
	if err != nil {
		w.logger.Warn("setpoint read-back failed", "error", err)
		return
	}
	if int(got) != wantWatts {
		w.logger.Warn("setpoint read-back mismatch", "wrote", wantWatts, "read_back", got)
	}
}

// Close releases the verification connection, if one was established.
func (w *Writer) Close() {
	if w.readback != nil {
		w.readback.close()
	}
}

// nextHeartbeat alternates between two sentinel values, matching the
// inverter's expectation that the heartbeat register visibly changes on
// every write rather than just being refreshed with the same value.
func (w *Writer) nextHeartbeat() uint16 {
	w.heartbeatToggle = !w.heartbeatToggle
	if w.heartbeatToggle {
		return 0xAA55
	}
	return 0x55AA
}
