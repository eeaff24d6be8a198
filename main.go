package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanpawarit/clinic-scheduling-assistant/agent/agents/identity"
	"github.com/tanpawarit/clinic-scheduling-assistant/agent/agents/orchestrator"
	"github.com/tanpawarit/clinic-scheduling-assistant/agent/agents/primary"
	"github.com/tanpawarit/clinic-scheduling-assistant/agent/agents/reasoner"
	"github.com/tanpawarit/clinic-scheduling-assistant/agent/agents/specialist"
	contractx "github.com/tanpawarit/clinic-scheduling-assistant/agent/contract"
	"github.com/tanpawarit/clinic-scheduling-assistant/agent/directory"
	llmx "github.com/tanpawarit/clinic-scheduling-assistant/agent/llm"
	promptx "github.com/tanpawarit/clinic-scheduling-assistant/agent/prompt"
	"github.com/tanpawarit/clinic-scheduling-assistant/agent/scheduling"
	statex "github.com/tanpawarit/clinic-scheduling-assistant/agent/state"
	toolx "github.com/tanpawarit/clinic-scheduling-assistant/agent/tool"
	"github.com/tanpawarit/clinic-scheduling-assistant/api"
	configx "github.com/tanpawarit/clinic-scheduling-assistant/pkg/config"
	_ "github.com/tanpawarit/clinic-scheduling-assistant/pkg/logger/autoload"
	openrouterx "github.com/tanpawarit/clinic-scheduling-assistant/pkg/openrouter"
	qstashx "github.com/tanpawarit/clinic-scheduling-assistant/pkg/qstash"
	"github.com/tanpawarit/clinic-scheduling-assistant/pkg/resilience"
)

type AppConfig struct {
	Port               string        `envconfig:"PORT" default:"8080"`
	SessionBackend     string        `split_words:"true" default:"memory"`
	SchedulingBackend  string        `split_words:"true" default:"memory"`
	DirectoryBackend   string        `split_words:"true" default:"memory"`
	ReasonerAttempts   int           `split_words:"true" default:"3"`
	ReasonerTimeout    time.Duration `split_words:"true" default:"20s"`
	ToolTimeout        time.Duration `split_words:"true" default:"5s"`
	RatePerMinute      int           `split_words:"true" default:"30"`
	MaxHops            int           `split_words:"true" default:"4"`
	PublishDestination string        `split_words:"true"`
	SkipProbe          bool          `split_words:"true" default:"false"`
}

// closers run in reverse order on shutdown.
type closers []func() error

func (c *closers) add(fn func() error) { *c = append(*c, fn) }

func (c closers) closeAll() {
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i](); err != nil {
			log.Error().Err(err).Msg("close failed")
		}
	}
}

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("clinic scheduling assistant stopped")
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appCfg := configx.MustNew[AppConfig]("APP")
	identityCfg := configx.MustNew[identity.Config]("APP")
	llmCfg, err := configx.New[llmx.Config]("OPENROUTER")
	if err != nil {
		return err
	}

	var cleanup closers
	defer cleanup.closeAll()

	sessions, err := openSessionStore(appCfg.SessionBackend, &cleanup)
	if err != nil {
		return err
	}
	appointments, err := openSchedulingStore(ctx, appCfg.SchedulingBackend, &cleanup)
	if err != nil {
		return err
	}
	patients, err := openDirectory(ctx, appCfg.DirectoryBackend, &cleanup)
	if err != nil {
		return err
	}

	if !appCfg.SkipProbe {
		probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := openrouterx.Probe(probeCtx, openrouterx.NewClient(llmCfg.OpenRouterFor(llmx.TaskIntent))); err != nil {
			log.Warn().Err(err).Msg("openrouter probe failed")
		}
		cancel()
	}

	prompts := promptx.LoadPromptSet()
	if err := prompts.Validate(); err != nil {
		return err
	}
	brain, err := reasoner.NewFromConfig(ctx, *llmCfg, prompts, reasoner.WithPolicy(resilience.Policy{
		MaxAttempts:    appCfg.ReasonerAttempts,
		BaseDelay:      200 * time.Millisecond,
		MaxDelay:       2 * time.Second,
		Jitter:         0.2,
		AttemptTimeout: appCfg.ReasonerTimeout,
	}))
	if err != nil {
		return fmt.Errorf("build reasoner: %w", err)
	}

	gate, err := identity.New(brain, patients, *identityCfg)
	if err != nil {
		return err
	}
	flows, err := specialist.New(ctx, specialist.Deps{
		Reasoner:    brain,
		Gateway:     toolx.NewGateway(appointments, toolx.WithTimeout(appCfg.ToolTimeout)),
		Preferences: scheduling.NewMemoryPreferences(),
	})
	if err != nil {
		return err
	}
	assistant, err := primary.New(flows, nil)
	if err != nil {
		return err
	}
	publisher, err := openPublisher(appCfg.PublishDestination)
	if err != nil {
		return err
	}

	orch, err := orchestrator.New(orchestrator.Deps{
		Store:     sessions,
		Reasoner:  brain,
		Gate:      gate,
		Primary:   assistant,
		Flows:     flows,
		Publisher: publisher,
		MaxHops:   appCfg.MaxHops,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + appCfg.Port,
		Handler:           api.NewServer(orch, api.Config{RatePerMinute: appCfg.RatePerMinute}).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("port", appCfg.Port).
			Str("sessions", appCfg.SessionBackend).
			Str("scheduling", appCfg.SchedulingBackend).
			Str("directory", appCfg.DirectoryBackend).
			Msg("clinic scheduling assistant listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	log.Info().Msg("shutting down")
	return srv.Shutdown(shutdownCtx)
}

func openSessionStore(backend string, cleanup *closers) (statex.Store, error) {
	switch backend {
	case "", "memory":
		return statex.NewMemoryStore(), nil
	case "upstash":
		cfg := configx.MustNew[statex.UpstashRedisConfig]("UPSTASH_REDIS")
		return statex.NewUpstashRedisStore(*cfg)
	case "redis":
		cfg := configx.MustNew[statex.RedisConfig]("REDIS")
		client := statex.NewRedisClient(*cfg)
		cleanup.add(client.Close)
		return statex.NewRedisStore(client, cfg.TTL)
	default:
		return nil, fmt.Errorf("unknown session backend %q", backend)
	}
}

func openSchedulingStore(ctx context.Context, backend string, cleanup *closers) (scheduling.Store, error) {
	switch backend {
	case "", "memory":
		return scheduling.NewDemoStore(time.Now()), nil
	case "postgres":
		cfg := configx.MustNew[scheduling.PostgresConfig]("POSTGRES")
		db, err := scheduling.OpenPostgres(*cfg)
		if err != nil {
			return nil, err
		}
		cleanup.add(db.Close)
		store, err := scheduling.NewPostgresStore(ctx, db, scheduling.DemoRoster())
		if err != nil {
			return nil, err
		}
		if cfg.Seed {
			if err := store.Seed(ctx, scheduling.DemoAppointments(time.Now())); err != nil {
				return nil, err
			}
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown scheduling backend %q", backend)
	}
}

func openDirectory(ctx context.Context, backend string, cleanup *closers) (contractx.Directory, error) {
	switch backend {
	case "", "memory":
		return directory.NewMemoryDirectory(directory.DemoPatients()), nil
	case "sqlite":
		cfg := configx.MustNew[directory.SQLiteConfig]("DIRECTORY")
		dir, err := directory.NewSQLiteDirectory(ctx, *cfg)
		if err != nil {
			return nil, err
		}
		cleanup.add(dir.Close)
		return dir, nil
	default:
		return nil, fmt.Errorf("unknown directory backend %q", backend)
	}
}

func openPublisher(destination string) (contractx.EventPublisher, error) {
	if destination == "" {
		return orchestrator.NoopPublisher{}, nil
	}
	cfg := configx.MustNew[qstashx.Config]("QSTASH")
	client, err := qstashx.NewClient(*cfg)
	if err != nil {
		return nil, err
	}
	return orchestrator.NewQStashPublisher(client, destination)
}
