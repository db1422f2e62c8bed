package cloudsync

import (
	"context"
	"log/slog"
	"time"

	"github.com/greenhaus/chargesched/consumption"
	"github.com/greenhaus/chargesched/model"
)

// Mirror periodically uploads fresh consumption samples and streams control
// decisions to the cloud client. Every failure is logged and swallowed: a
// dead or unreachable backend never blocks the control loop it mirrors.
type Mirror struct {
	client *Client
	store  *consumption.Store

	decisions chan decisionUpload

	lastSynced time.Time
	logger     *slog.Logger
}

// NewMirror wraps client and store. Up to 25 decisions can wait in the buffer
// for Run to upload them; once it is full, RecordDecision drops each new one.
func NewMirror(client *Client, store *consumption.Store) *Mirror {
	return &Mirror{
		client:     client,
		store:      store,
		decisions:  make(chan decisionUpload, 25),
		lastSynced: time.Now().Add(-24 * time.Hour),
		logger:     slog.Default().With("component", "cloudsync"),
	}
}

// RecordDecision queues a control decision for upload. It never blocks the
// control loop: a full buffer drops the new decision and logs it.
func (m *Mirror) RecordDecision(at time.Time, decision model.ControlDecision) {
	select {
	case m.decisions <- decisionUpload{At: at, Decision: decision}:
	default:
		m.logger.Warn("decision upload buffer full, dropping", "reason", decision.Reason)
	}
}

// Run uploads queued decisions as they arrive and polls the consumption
// store for fresh samples on every tick, until ctx is cancelled.
func (m *Mirror) Run(ctx context.Context, uploadInterval time.Duration) error {
	if uploadInterval <= 0 {
		uploadInterval = time.Minute
	}
	ticker := time.NewTicker(uploadInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case upload := <-m.decisions:
			if err := m.client.UploadDecision(upload.At, upload.Decision); err != nil {
				m.logger.Warn("decision upload failed", "error", err)
			}
		case now := <-ticker.C:
			m.syncConsumption(now)
		}
	}
}

func (m *Mirror) syncConsumption(now time.Time) {
	samples, err := m.store.RecentSince(m.lastSynced)
	if err != nil {
		m.logger.Warn("consumption lookup failed", "error", err)
		return
	}
	if len(samples) == 0 {
		return
	}
	if err := m.client.UploadConsumption(samples); err != nil {
		m.logger.Warn("consumption upload failed", "error", err)
		return
	}
	m.lastSynced = now
	m.logger.Info("mirrored consumption samples", "count", len(samples))
}
