package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/codigloo/contestd/internal/api"
	"github.com/codigloo/contestd/internal/contest"
	"github.com/codigloo/contestd/internal/draft"
	"github.com/codigloo/contestd/internal/event"
	"github.com/codigloo/contestd/internal/judge"
	"github.com/codigloo/contestd/internal/proctor"
	"github.com/codigloo/contestd/internal/scoreboard"
	"github.com/codigloo/contestd/internal/session"
	"github.com/codigloo/contestd/internal/telemetry"
)

type Config struct {
	HTTP struct {
		Port int32
	}

	Collaborators struct {
		Contest struct {
			BaseURL string
		}

		Judge struct {
			BaseURL string
		}
	}

	Redis struct {
		Scoreboard struct {
			Addrs  []string
			Pass   string
			Prefix string
		}

		Pubsub struct {
			Addrs  []string
			Pass   string
			Prefix string
		}
	}

	Postgres struct {
		Draft struct {
			Addr string
			User string
			Pass string
			Name string
		}

		Proctor struct {
			Addr string
			User string
			Pass string
			Name string
		}
	}
}

// DefaultConfig is the configuration the server starts from before the
// config file and environment overrides apply.
func DefaultConfig() Config {
	var c Config
	c.HTTP.Port = 8080
	c.Redis.Scoreboard.Prefix = "contestd"
	c.Redis.Pubsub.Prefix = "contestd"
	return c
}

type Server struct {
	c Config

	eb *event.Bus

	infra struct {
		redis struct {
			scoreboard redis.UniversalClient
			pubsub     redis.UniversalClient
		}

		postgres struct {
			draft   *pgxpool.Pool
			proctor *pgxpool.Pool
		}
	}

	service struct {
		session    *session.Service
		draft      *draft.Service
		scoreboard *scoreboard.Service
		proctor    *proctor.Service
	}

	http *http.Server
}

func Init(c Config) (*Server, error) {
	s := &Server{c: c}

	s.eb = event.NewBus()

	if err := s.initInfra(); err != nil {
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	s.initService()
	s.initAPI()
	return s, nil
}

func (s *Server) initInfra() error {
	if err := s.initRedis(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	if err := s.initPostgres(); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	return nil
}

func (s *Server) initRedis() error {
	connect := func(addrs []string, pass string) (redis.UniversalClient, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		r := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    addrs,
			Password: pass,
		})

		if err := telemetry.MonitorRedis(r); err != nil {
			return nil, err
		}

		if err := r.Ping(ctx).Err(); err != nil {
			return nil, err
		}

		return r, nil
	}

	var err error
	s.infra.redis.scoreboard, err = connect(s.c.Redis.Scoreboard.Addrs, s.c.Redis.Scoreboard.Pass)
	if err != nil {
		return fmt.Errorf("scoreboard: %w", err)
	}

	s.infra.redis.pubsub, err = connect(s.c.Redis.Pubsub.Addrs, s.c.Redis.Pubsub.Pass)
	if err != nil {
		return fmt.Errorf("pubsub: %w", err)
	}

	return nil
}

func (s *Server) initPostgres() (err error) {
	connect := func(addr, user, pass, name string) (*pgxpool.Pool, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		cc, err := pgxpool.ParseConfig(fmt.Sprintf("postgres://%s:%s@%s/%s", user, pass, addr, name))
		if err != nil {
			return nil, err
		}

		db, err := pgxpool.NewWithConfig(ctx, cc)
		if err != nil {
			return nil, err
		}

		if err := db.Ping(ctx); err != nil {
			return nil, err
		}

		return db, nil
	}

	s.infra.postgres.draft, err = connect(s.c.Postgres.Draft.Addr, s.c.Postgres.Draft.User, s.c.Postgres.Draft.Pass, s.c.Postgres.Draft.Name)
	if err != nil {
		return fmt.Errorf("postgres: draft: %w", err)
	}

	s.infra.postgres.proctor, err = connect(s.c.Postgres.Proctor.Addr, s.c.Postgres.Proctor.User, s.c.Postgres.Proctor.Pass, s.c.Postgres.Proctor.Name)
	if err != nil {
		return fmt.Errorf("postgres: proctor: %w", err)
	}

	return nil
}

func (s *Server) initService() {
	s.service.draft = draft.NewService(draft.Config{
		DB: s.infra.postgres.draft,
	})

	s.service.session = session.NewService(session.Config{
		Contest: contest.NewClient(contest.Config{
			BaseURL: s.c.Collaborators.Contest.BaseURL,
		}),
		Judge: judge.NewClient(judge.Config{
			BaseURL: s.c.Collaborators.Judge.BaseURL,
		}),
		Drafts:   s.service.draft,
		EventBus: s.eb,
	})

	s.service.scoreboard = scoreboard.NewService(scoreboard.Config{
		EventBus: s.eb,
		Redis:    s.infra.redis.scoreboard,
		Prefix:   s.c.Redis.Scoreboard.Prefix,
	})
	s.service.scoreboard.StartRefresher()

	s.service.proctor = proctor.NewService(proctor.Config{
		EventBus: s.eb,
		DB:       s.infra.postgres.proctor,
	})
}

func (s *Server) initAPI() {
	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery(), telemetry.HTTPLogger())

	api.New(api.Config{
		Router:       e,
		EventBus:     s.eb,
		Session:      s.service.session,
		Scoreboard:   s.service.scoreboard,
		Proctor:      s.service.proctor,
		Redis:        s.infra.redis.pubsub,
		PubsubPrefix: s.c.Redis.Pubsub.Prefix,
	})

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

func (s *Server) Start() {
	ctx := context.TODO()

	slog.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on port %d", s.c.HTTP.Port))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
	}
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}

	s.service.session.Stop()
	s.service.scoreboard.Stop()
	s.eb.Stop()

	slog.InfoContext(ctx, "server: shutdown completed")
}
