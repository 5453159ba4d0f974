package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"pandacare-chat/internal/api"
	"pandacare-chat/internal/api/endpoints"
	"pandacare-chat/internal/api/middleware"
	"pandacare-chat/internal/api/router"
	"pandacare-chat/internal/auth"
	"pandacare-chat/internal/chatapi"
	"pandacare-chat/internal/database"
	"pandacare-chat/internal/env"
	"pandacare-chat/internal/logging"
	"pandacare-chat/internal/queue"
	"pandacare-chat/internal/session"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const (
	backendRedis    = "redis"
	backendDynamoDB = "dynamodb"
)

var rootCmd = &cobra.Command{
	Use:          "web-server",
	Short:        "Chat page host",
	SilenceUsage: true,
	RunE:         runServer,
}

var (
	flagListenAddr       string
	flagLogLevel         string
	flagChatAPIURL       string
	flagChatPublicURL    string
	flagAuthAPIURL       string
	flagSessionBackend   string
	flagSessionRedisURL  string
	flagSessionRedisPass string
	flagSessionTTL       time.Duration
	flagAllowedOrigins   []string
)

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&flagListenAddr, "listen-addr", env.GetOrDefault(env.ListenAddr, ":8000"), "listen address (env LISTEN_ADDR)")
	flags.StringVar(&flagLogLevel, "log-level", env.GetOrDefault(env.LogLevel, "info"), "log level (env LOG_LEVEL)")
	flags.StringVar(&flagChatAPIURL, "chat-api-url", env.Get(env.ChatAPIURL), "chat gateway base URL used by this server (env CHAT_API_URL)")
	flags.StringVar(&flagChatPublicURL, "chat-public-url", env.Get(env.ChatPublicURL), "chat gateway base URL handed to browsers; defaults to --chat-api-url (env CHAT_PUBLIC_URL)")
	flags.StringVar(&flagAuthAPIURL, "auth-api-url", env.Get(env.AuthAPIURL), "auth service base URL for token refresh (env AUTH_API_URL)")
	flags.StringVar(&flagSessionBackend, "session-backend", env.GetOrDefault(env.SessionBackend, backendRedis), "session store: redis or dynamodb (env SESSION_BACKEND)")
	flags.StringVar(&flagSessionRedisURL, "session-redis-url", env.Get(env.SessionRedisURL), "redis address for sessions (env SESSION_REDIS_URL)")
	flags.StringVar(&flagSessionRedisPass, "session-redis-pass", env.Get(env.SessionRedisPass), "redis password for sessions (env SESSION_REDIS_PASS)")
	flags.DurationVar(&flagSessionTTL, "session-ttl", session.DefaultTTL, "session lifetime")
	flags.StringSliceVar(&flagAllowedOrigins, "allowed-origins", splitList(env.Get(env.WebURL)), "CORS origins (env WEB_URL)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("web-server failed")
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	logger, err := logging.New(os.Stdout, flagLogLevel)
	if err != nil {
		return err
	}
	if err := env.Require(env.UserSecretKey); err != nil {
		return err
	}
	if flagChatAPIURL == "" {
		return errors.New("--chat-api-url or CHAT_API_URL is required")
	}
	if flagChatPublicURL == "" {
		flagChatPublicURL = flagChatAPIURL
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := newSessionStore(ctx, &logger)
	if err != nil {
		return err
	}

	httpClient := &http.Client{Timeout: 10 * time.Second}
	verifier := auth.NewVerifier([]byte(env.Get(env.UserSecretKey)), nil)

	var refresher auth.Refresher
	if flagAuthAPIURL != "" {
		refresher = auth.NewHTTPRefresher(flagAuthAPIURL, httpClient)
	} else {
		logger.Warn().Msg("no auth api url configured, expired tokens will not be refreshed")
	}

	server := api.NewAPIServer(
		api.Config{
			ListenAddr: flagListenAddr,
			Queue:      queue.NewRequestQueueManager(50, 20, &logger),
			Logger:     &logger,
			CORS:       middleware.DefaultCORSConfig(flagAllowedOrigins...),
		},
		router.UtilsRoutes("/api", map[string]endpoints.HealthCheck{
			"sessions": func(ctx context.Context) error {
				_, err := store.Get(ctx, "health-probe")
				if errors.Is(err, session.ErrNotFound) {
					return nil
				}
				return err
			},
		}),
		router.ChatRoutes("/chat",
			endpoints.ChatConfig{
				Rooms:        chatapi.NewClient(flagChatAPIURL, httpClient),
				Store:        store,
				Verifier:     verifier,
				PublicAPIURL: flagChatPublicURL,
				SessionTTL:   flagSessionTTL,
			},
			middleware.AuthConfig{
				Verifier:  verifier,
				Refresher: refresher,
				Store:     store,
				Logger:    &logger,
			},
		),
	)

	return server.Run(ctx)
}

func newSessionStore(ctx context.Context, logger *zerolog.Logger) (session.Store, error) {
	switch strings.ToLower(flagSessionBackend) {
	case backendRedis:
		if flagSessionRedisURL == "" {
			return nil, errors.New("--session-redis-url or SESSION_REDIS_URL is required for the redis backend")
		}
		logger.Info().Str("addr", flagSessionRedisURL).Msg("using redis session store")
		return session.NewRedisStore(session.NewRedisClient(flagSessionRedisURL, flagSessionRedisPass), flagSessionTTL), nil

	case backendDynamoDB:
		db, err := database.NewDatabase(ctx)
		if err != nil {
			return nil, fmt.Errorf("db init failed: %w", err)
		}
		logger.Info().Msg("using dynamodb session store")
		return session.NewDynamoStore(db, flagSessionTTL), nil

	default:
		return nil, fmt.Errorf("unknown session backend %q", flagSessionBackend)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
