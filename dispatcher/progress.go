package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
)

type progress struct {
	RoundID      uint64          `json:"roundId"`
	MeetingRound uint64          `json:"meetingRound"`
	Game         json.RawMessage `json:"game,omitempty"`
}

// SaveProgress stores the round counters together with game, an opaque
// snapshot of the caller's own state, on the bridge.
func (d *Dispatcher) SaveProgress(ctx context.Context, game any) error {
	raw, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	round, meeting := d.Rounds()
	return d.client.SaveSnapshot(ctx, d.settings.PlayerID, progress{
		RoundID:      round,
		MeetingRound: meeting,
		Game:         raw,
	})
}

// LoadProgress restores the round counters saved by SaveProgress and
// decodes the game snapshot into game, when game is not nil. It reports
// false when the bridge holds no snapshot for the player.
func (d *Dispatcher) LoadProgress(ctx context.Context, game any) (bool, error) {
	raw, found, err := d.client.LoadSnapshot(ctx, d.settings.PlayerID)
	if err != nil || !found {
		return false, err
	}
	var p progress
	if err := json.Unmarshal(raw, &p); err != nil {
		return false, fmt.Errorf("decode snapshot: %w", err)
	}
	if game != nil && len(p.Game) > 0 {
		if err := json.Unmarshal(p.Game, game); err != nil {
			return false, fmt.Errorf("decode game snapshot: %w", err)
		}
	}

	d.mu.Lock()
	if p.RoundID > 0 {
		d.roundID = p.RoundID
	}
	d.meetingRound = p.MeetingRound
	d.mu.Unlock()
	return true, nil
}
