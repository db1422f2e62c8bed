package hastate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/greenhaus/chargesched/consumption"
)

type historyStateEntry struct {
	State       string    `json:"state"`
	LastChanged time.Time `json:"last_changed"`
}

// History fetches raw telemetry samples for entityID between start and end,
// via Home Assistant's /api/history/period endpoint. It satisfies
// consumption.HistorySource, letting the consumption store bootstrap its
// learned profile from an entity's recorded history.
func (c *Client) History(ctx context.Context, entityID string, start, end time.Time) ([]consumption.HistoryPoint, error) {
	if c.token == "" {
		return nil, fmt.Errorf("no home assistant token configured")
	}

	path := fmt.Sprintf("/api/history/period/%s?filter_entity_id=%s&end_time=%s&minimal_response",
		start.UTC().Format(time.RFC3339), entityID, end.UTC().Format(time.RFC3339))

	req, err := c.newRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get history for %s: %w", entityID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get history for %s: unexpected status %d", entityID, resp.StatusCode)
	}

	// Home Assistant returns a list of entity histories, one per requested
	// entity_id; we requested exactly one.
	var series [][]historyStateEntry
	if err := json.NewDecoder(resp.Body).Decode(&series); err != nil {
		return nil, fmt.Errorf("decode history for %s: %w", entityID, err)
	}

	var points []consumption.HistoryPoint
	if len(series) == 0 {
		return points, nil
	}

	for _, entry := range series[0] {
		if unavailable(entry.State) {
			continue
		}
		var value float64
		if _, err := fmt.Sscanf(entry.State, "%g", &value); err != nil {
			continue
		}
		points = append(points, consumption.HistoryPoint{Time: entry.LastChanged, Value: value})
	}

	return points, nil
}
