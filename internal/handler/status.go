package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// AdvanceStatuses moves every event to the status it should have now and
// returns how many changed.
func (h *Handler) AdvanceStatuses(ctx context.Context) (int, error) {
	events, err := h.Store.Events(ctx)
	if err != nil {
		return 0, fmt.Errorf("list events: %w", err)
	}
	now := h.now()
	changed := 0
	for _, ev := range events {
		next := ev.NextStatus(now)
		if next == ev.Status {
			continue
		}
		log.Info().Int64("event", ev.ID).Msgf("Event %q: %s -> %s", ev.Title, ev.Status, next)
		ev.Status = next
		if _, err := h.Store.SaveEvent(ctx, ev); err != nil {
			return changed, fmt.Errorf("save event %d: %w", ev.ID, err)
		}
		changed++
	}
	return changed, nil
}

// RunStatusUpdater calls AdvanceStatuses every interval until ctx is done.
func (h *Handler) RunStatusUpdater(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := h.AdvanceStatuses(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to advance event statuses")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
