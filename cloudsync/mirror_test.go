package cloudsync

import (
	"log/slog"
	"testing"
	"time"

	"github.com/greenhaus/chargesched/model"
)

func TestRecordDecisionDropsWhenBufferFull(t *testing.T) {
	m := &Mirror{decisions: make(chan decisionUpload, 1), logger: slog.Default()}

	m.RecordDecision(time.Now(), model.ControlDecision{Reason: "first"})
	m.RecordDecision(time.Now(), model.ControlDecision{Reason: "second"})

	queued := <-m.decisions
	if queued.Decision.Reason != "first" {
		t.Errorf("got %q, expected the first decision to have been queued, second dropped", queued.Decision.Reason)
	}
	select {
	case <-m.decisions:
		t.Error("expected only one decision in the buffer")
	default:
	}
}
