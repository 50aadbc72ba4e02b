package cli

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"care-companion/internal/app"
	"care-companion/internal/config"
	"care-companion/internal/domain"
	"care-companion/internal/infra/carehttp"
	"care-companion/internal/infra/memory"
	pgloader "care-companion/internal/infra/postgres"
	"care-companion/internal/infra/rabbit"
	infraredis "care-companion/internal/infra/redis"
	"care-companion/internal/routing"
	transport "care-companion/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const maxStoredResults = 20

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the companion server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.PromptLoader = memory.NewStaticPromptLoader(samplePrompts())
	if pool != nil {
		loader = pgloader.NewPromptLoader(pool)
	}

	promptTTL := config.TTLDuration(cfg.Prompts.TTL, 10*time.Minute)
	var prompts app.PromptRepository
	if redisClient != nil {
		prompts = infraredis.NewPromptRepository(redisClient, loader, promptTTL)
	} else {
		prompts = memory.NewPromptRepository(loader, promptTTL)
	}

	rules := routing.DefaultRules().WithExtra(cfg.Routing.ScheduleKeywords, cfg.Routing.MedicineKeywords)
	var devices app.DeviceRepository
	var results app.ResultStore
	if redisClient != nil {
		devices = infraredis.NewDeviceStore(redisClient, rules, redisTTL)
		results = infraredis.NewResultStore(redisClient, maxStoredResults)
	} else {
		devices = memory.NewDeviceStore(rules)
		results = memory.NewResultStore(maxStoredResults)
	}

	games := app.LocalGames(app.NewLocalContent(prompts))
	gameOpts := []app.Option{
		app.WithAdvanceDelay(config.TTLDuration(cfg.Game.AdvanceDelay, app.DefaultAdvanceDelay)),
	}
	if cfg.API.BaseURL != "" {
		timeout := config.TTLDuration(cfg.API.Timeout, carehttp.DefaultTimeout)
		games = carehttp.Games(cfg.API.BaseURL, &http.Client{Timeout: timeout})
		gameOpts = append(gameOpts, app.WithImageBase(cfg.API.BaseURL))
	}
	if cfg.Game.Choices {
		gameOpts = append(gameOpts, app.WithChoices(rand.New(rand.NewSource(time.Now().UnixNano()))))
	}

	service := app.NewCompanionService(devices, results, games, gameOpts...)
	wsHandler := transport.NewWSHandler(service, config.TTLDuration(cfg.Game.IdleTimeout, app.DefaultIdleTimeout))

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewMux(service, wsHandler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("starting care companion on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if cfg.Rabbit.URL != "" {
		consumer := rabbit.NewConsumer(cfg.Rabbit.URL, cfg.Rabbit.Queue, service)
		g.Go(func() error {
			return consumer.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Println("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// samplePrompts seeds the demo subject when no database is configured.
func samplePrompts() map[string][]domain.Prompt {
	return map[string][]domain.Prompt{
		"demo": {
			{ID: "demo-1", ImageURL: "https://picsum.photos/id/1005/600/400", Caption: "Grandson Minsu", Distractors: []string{"Nephew Junho", "Son Daeho"}},
			{ID: "demo-2", ImageURL: "https://picsum.photos/id/1011/600/400", Caption: "Daughter Jiyoung", Distractors: []string{"Niece Sora", "Neighbor Hana"}},
			{ID: "demo-3", ImageURL: "https://picsum.photos/id/1025/600/400", Caption: "Puppy Bori", Distractors: []string{"Cat Nabi"}},
		},
	}
}
