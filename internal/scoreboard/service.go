package scoreboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/codigloo/contestd/internal/domain"
	"github.com/codigloo/contestd/internal/errors"
	"github.com/codigloo/contestd/internal/event"
)

const (
	publishInterval = 200 * time.Millisecond
	refreshInterval = 30 * time.Second
)

type Config struct {
	EventBus      *event.Bus
	Redis         redis.UniversalClient
	Prefix        string
	Now           func() time.Time
	NewTickerFunc func(d time.Duration) Ticker
}

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// Service keeps per-contest standings in a redis sorted set, fed by
// submission.scored events. Publishes are coalesced: many submissions landing
// within the interval produce one scoreboard.updated event.
type Service struct {
	eb     *event.Bus
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time

	newTicker func(d time.Duration) Ticker
	stop      chan struct{}
}

func NewService(c Config) *Service {
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.NewTickerFunc == nil {
		c.NewTickerFunc = func(d time.Duration) Ticker {
			return realTicker{t: time.NewTicker(d)}
		}
	}

	s := &Service{
		eb:        c.EventBus,
		redis:     c.Redis,
		prefix:    c.Prefix,
		now:       c.Now,
		newTicker: c.NewTickerFunc,
		stop:      make(chan struct{}),
	}

	s.eb.Subscribe(domain.EventNameSubmissionScored, func(ctx context.Context, e event.Event) error {
		return s.ApplyScore(ctx, e.(domain.EventSubmissionScored))
	})

	return s
}

type GetScoreboardRequest struct {
	ContestID string
}

// GetScoreboard returns the contest standings, best score first.
func (s *Service) GetScoreboard(ctx context.Context, req GetScoreboardRequest) (*domain.Scoreboard, error) {
	res, err := s.redis.ZRevRangeWithScores(ctx, s.scoreboardKey(req.ContestID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("get scoreboard: %w", err)
	}

	if len(res) == 0 {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef("scoreboard not found: contest=%s", req.ContestID))
	}

	entries := make([]domain.ScoreboardEntry, 0, len(res))
	for _, z := range res {
		entries = append(entries, domain.ScoreboardEntry{
			Username: z.Member.(string),
			Score:    z.Score,
		})
	}

	return &domain.Scoreboard{
		ContestID: req.ContestID,
		Entries:   entries,
	}, nil
}

// ApplyScore adds a scored item to the participant's contest total. Each item
// scores at most once, so an increment never double-counts.
func (s *Service) ApplyScore(ctx context.Context, e domain.EventSubmissionScored) error {
	key := s.scoreboardKey(e.ContestID)
	if err := s.redis.ZIncrBy(ctx, key, e.TotalScore.InexactFloat64(), e.Username).Err(); err != nil {
		return fmt.Errorf("apply score: %w", err)
	}

	if err := s.redis.SAdd(ctx, s.contestsKey(), e.ContestID).Err(); err != nil {
		return fmt.Errorf("track contest: %w", err)
	}

	return s.schedulePublish(ctx, e.ContestID)
}

// schedulePublish publishes the scoreboard at most once per interval. The
// SetNX key doubles as a cross-instance lock so a fleet of servers does not
// multiply the event.
func (s *Service) schedulePublish(ctx context.Context, contestID string) error {
	ok, err := s.redis.SetNX(ctx, s.publishTimeKey(contestID), s.now().UnixMilli(), publishInterval).Result()
	if err != nil {
		return fmt.Errorf("setnx: %w", err)
	}

	if !ok {
		return nil
	}

	return s.publish(ctx, contestID)
}

func (s *Service) publish(ctx context.Context, contestID string) error {
	sb, err := s.GetScoreboard(ctx, GetScoreboardRequest{ContestID: contestID})
	if err != nil {
		return fmt.Errorf("publish scoreboard: contest=%s: %w", contestID, err)
	}

	s.eb.Publish(ctx, domain.EventScoreboardUpdated{
		Scoreboard: *sb,
	})

	return s.redis.Set(ctx, s.publishTimeKey(contestID), s.now().UnixMilli(), publishInterval).Err()
}

// StartRefresher re-publishes every tracked contest on an interval so list
// views recover even when publishes were lost. Stop shuts it down.
func (s *Service) StartRefresher() {
	t := s.newTicker(refreshInterval)

	go func() {
		defer t.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-t.C():
				s.refresh()
			}
		}
	}()
}

func (s *Service) Stop() {
	close(s.stop)
}

func (s *Service) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	contests, err := s.redis.SMembers(ctx, s.contestsKey()).Result()
	if err != nil {
		slog.ErrorContext(ctx, "scoreboard: list contests failed", "error", err)
		return
	}

	for _, id := range contests {
		if err := s.publish(ctx, id); err != nil {
			slog.ErrorContext(ctx, "scoreboard: refresh publish failed", "contest", id, "error", err)
		}
	}
}

func (s *Service) scoreboardKey(contestID string) string {
	return fmt.Sprintf("%s:%s:scoreboard", s.prefix, contestID)
}

func (s *Service) publishTimeKey(contestID string) string {
	return fmt.Sprintf("%s:%s:time", s.prefix, contestID)
}

func (s *Service) contestsKey() string {
	return fmt.Sprintf("%s:contests", s.prefix)
}
