package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/codigloo/contestd/internal/domain"
)

const maxConcurrent = 100

type (
	Notification struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}

	Scoreboard struct {
		ContestID string            `json:"contest_id"`
		Entries   []ScoreboardEntry `json:"entries"`
	}

	ScoreboardEntry struct {
		Username string `json:"username"`
		Score    string `json:"score"`
	}
)

func renderScoreboard(sb domain.Scoreboard) Scoreboard {
	out := Scoreboard{
		ContestID: sb.ContestID,
		Entries:   make([]ScoreboardEntry, 0, len(sb.Entries)),
	}

	for _, e := range sb.Entries {
		out.Entries = append(out.Entries, ScoreboardEntry{
			Username: e.Username,
			Score:    strconv.FormatFloat(e.Score, 'f', -1, 64),
		})
	}

	return out
}

// PublishScoreboardUpdated fans the fresh standings out to every participant
// on the board, one redis pubsub channel per user.
func (a *API) PublishScoreboardUpdated(ctx context.Context, e domain.EventScoreboardUpdated) error {
	data := renderScoreboard(e.Scoreboard)

	var eg errgroup.Group
	eg.SetLimit(maxConcurrent)

	for _, entry := range data.Entries {
		entry := entry
		eg.Go(func() error {
			return a.publishNotification(ctx, entry.Username, e.Name(), data)
		})
	}

	return eg.Wait()
}

func (a *API) publishNotification(ctx context.Context, user, event string, data any) error {
	n := Notification{
		Event: event,
		Data:  data,
	}

	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("pubsub: marshal %s: %v", event, err)
	}

	return a.redis.Publish(ctx, fmt.Sprintf("%s:user:%s", a.prefix, user), b).Err()
}
