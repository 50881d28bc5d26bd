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

	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"eventchat/internal/auth"
	"eventchat/internal/config"
	"eventchat/internal/database"
	"eventchat/internal/handler"
	"eventchat/internal/model"
	"eventchat/internal/moderation"
	"eventchat/internal/store"
)

var (
	demo bool

	tokenName  string
	tokenStaff bool
	tokenTTL   time.Duration

	eventCreator  string
	eventStart    string
	eventDuration time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "server",
	Short:         "Event chat API server",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token USERNAME",
	Short: "Print a viewer token signed with CHAT_SECRET",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		token, err := auth.New(cfg.Secret).Issue(model.Viewer{
			Username:    args[0],
			DisplayName: tokenName,
			Staff:       tokenStaff,
		}, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

var eventCmd = &cobra.Command{
	Use:   "event TITLE",
	Short: "Create an event in the configured store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		s, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer s.Close()
		if _, ok := s.(*store.Memory); ok {
			log.Warn().Msg("⚠️  No DB_HOST or DATA_PATH set: the event only lives in this process")
		}

		start := time.Now()
		if eventStart != "" {
			if start, err = time.Parse(time.RFC3339, eventStart); err != nil {
				return fmt.Errorf("parse --start: %w", err)
			}
		}
		ev := model.Event{
			Title:       args[0],
			Status:      model.StatusScheduled,
			ScheduledAt: start,
			Duration:    eventDuration,
			Creator:     eventCreator,
		}
		ev.Status = ev.NextStatus(time.Now())
		ev, err = s.SaveEvent(cmd.Context(), ev)
		if err != nil {
			return err
		}
		fmt.Printf("%d\t%s\t%s\n", ev.ID, ev.Status, ev.Title)
		return nil
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.Flags().BoolVar(&demo, "demo", false, "create a live demo event when the store has none")

	tokenCmd.Flags().StringVar(&tokenName, "name", "", "display name")
	tokenCmd.Flags().BoolVar(&tokenStaff, "staff", false, "grant moderation rights")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime, 0 for none")

	eventCmd.Flags().StringVar(&eventCreator, "creator", "", "username of the event creator")
	eventCmd.Flags().StringVar(&eventStart, "start", "", "start time (RFC3339), default now")
	eventCmd.Flags().DurationVar(&eventDuration, "duration", 2*time.Hour, "event length, 0 for open-ended")

	rootCmd.AddCommand(tokenCmd, eventCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("❌ Server failed")
	}
}

func loadConfig() (config.Config, error) {
	// .envファイルを読み込み
	if err := godotenv.Load(); err != nil {
		log.Debug().Msgf("⚠️  .env file not found, using default values: %v", err)
	}

	// 環境変数を読み込み
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	setupLogging(cfg.Env)
	return cfg, nil
}

func setupLogging(env string) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if env == "development" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

// openStore picks MariaDB when DB_HOST is set, then Pebble when DATA_PATH is
// set, and memory otherwise.
func openStore(cfg config.Config) (store.Store, error) {
	switch {
	case cfg.DBHost != "":
		db, err := database.Init(cfg)
		if err != nil {
			return nil, fmt.Errorf("initialize database: %w", err)
		}
		return store.NewMySQL(db), nil
	case cfg.DataPath != "":
		return store.OpenPebble(cfg.DataPath)
	default:
		return store.NewMemory(), nil
	}
}

func seedDemo(ctx context.Context, s store.Store) error {
	events, err := s.Events(ctx)
	if err != nil {
		return err
	}
	if len(events) > 0 {
		return nil
	}
	ev, err := s.SaveEvent(ctx, model.Event{
		Title:       "Demo event",
		Status:      model.StatusLive,
		ScheduledAt: time.Now(),
		Creator:     "host",
	})
	if err != nil {
		return err
	}
	log.Info().Msgf("🎬 Demo event created: /chat/%d/", ev.ID)
	return nil
}

func serve(ctx context.Context, cfg config.Config) error {
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	if demo {
		if err := seedDemo(ctx, s); err != nil {
			return fmt.Errorf("seed demo event: %w", err)
		}
	}

	words := cfg.BlockedWords
	if len(words) == 0 {
		words = moderation.DefaultWords
	}
	filter, err := moderation.NewFilter(words)
	if err != nil {
		return err
	}

	// ハンドラー初期化
	h := handler.New(s, auth.New(cfg.Secret), filter, cfg)

	// WebSocket ブロードキャスターを開始
	go h.HandleBroadcast()
	go h.RunStatusUpdater(ctx, cfg.StatusInterval)

	router := h.SetupRouter()

	// CORS対応
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Length", "X-Request-ID"},
		MaxAge:           300,
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           c.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	fmt.Println("========================================")
	fmt.Println("  Event Chat Server")
	fmt.Println("========================================")
	fmt.Printf("  Environment: %s\n", cfg.Env)
	fmt.Printf("  Server: http://localhost:%s/chat/{eventId}/\n", cfg.ServerPort)
	fmt.Printf("  WebSocket: ws://localhost:%s/chat/{eventId}/ws\n", cfg.ServerPort)
	switch {
	case cfg.DBHost != "":
		fmt.Printf("  Database: %s@%s:%s/%s\n", cfg.DBUser, cfg.DBHost, cfg.DBPort, cfg.DBName)
	case cfg.DataPath != "":
		fmt.Printf("  Data: %s (pebble)\n", cfg.DataPath)
	default:
		fmt.Println("  Data: in memory")
	}
	fmt.Printf("  Allowed Origins: %v\n", cfg.AllowedOrigins)
	fmt.Println("========================================")

	errCh := make(chan error, 1)
	go func() {
		log.Info().Msg("🚀 Server started successfully")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
