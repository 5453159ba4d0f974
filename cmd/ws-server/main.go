package main

import (
	"context"
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
	"pandacare-chat/internal/env"
	"pandacare-chat/internal/gateway"
	"pandacare-chat/internal/logging"
	"pandacare-chat/internal/queue"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "ws-server",
	Short:        "Chat websocket gateway",
	SilenceUsage: true,
	RunE:         runServer,
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an access token for local development",
	RunE:  runToken,
}

var (
	flagListenAddr     string
	flagLogLevel       string
	flagRedisURL       string
	flagRedisPass      string
	flagRedisChannel   string
	flagHistoryLimit   int
	flagPingInterval   time.Duration
	flagAllowedOrigins []string

	flagTokenUser string
	flagTokenTTL  time.Duration
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagLogLevel, "log-level", env.GetOrDefault(env.LogLevel, "info"), "log level (env LOG_LEVEL)")

	serve := rootCmd.Flags()
	serve.StringVar(&flagListenAddr, "listen-addr", env.GetOrDefault(env.ListenAddr, ":83"), "listen address (env LISTEN_ADDR)")
	serve.StringVar(&flagRedisURL, "redis-url", env.Get(env.ChatRedisURL), "redis address for multi-instance fan-out; empty delivers in process (env CHAT_REDIS_URL)")
	serve.StringVar(&flagRedisPass, "redis-pass", env.Get(env.ChatRedisPass), "redis password (env CHAT_REDIS_PASS)")
	serve.StringVar(&flagRedisChannel, "redis-channel", gateway.DefaultChannel, "redis pub/sub channel")
	serve.IntVar(&flagHistoryLimit, "history-limit", gateway.DefaultHistoryLimit, "messages kept per room")
	serve.DurationVar(&flagPingInterval, "ping-interval", 30*time.Second, "websocket keepalive ping interval")
	serve.StringSliceVar(&flagAllowedOrigins, "allowed-origins", splitList(env.Get(env.WebURL)), "origins allowed by CORS and the websocket handshake (env WEB_URL)")

	tokenCmd.Flags().StringVar(&flagTokenUser, "user", "", "user id to put in the token")
	tokenCmd.Flags().DurationVar(&flagTokenTTL, "ttl", time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("ws-server failed")
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := gateway.NewHub(gateway.NewHistory(flagHistoryLimit), &logger)
	go hub.Run(ctx)

	checks := map[string]endpoints.HealthCheck{
		"hub": func(ctx context.Context) error {
			_, err := hub.Connections(ctx)
			return err
		},
	}

	errc := make(chan error, 2)
	var publisher gateway.Publisher = gateway.NewLocalPublisher(hub)
	if flagRedisURL != "" {
		client := gateway.NewRedisClient(flagRedisURL, flagRedisPass)
		defer client.Close()
		redisPublisher := gateway.NewRedisPublisher(client, flagRedisChannel, hub, &logger)
		publisher = redisPublisher
		checks["redis"] = func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}
		go func() {
			if err := redisPublisher.Run(ctx); err != nil {
				errc <- err
			}
		}()
	}

	handler := gateway.NewHandler(gateway.Config{
		Hub:          hub,
		Publisher:    publisher,
		Verifier:     auth.NewVerifier([]byte(env.Get(env.UserSecretKey)), nil),
		Logger:       &logger,
		PingInterval: flagPingInterval,
		CheckOrigin:  originChecker(flagAllowedOrigins),
	})

	server := api.NewAPIServer(
		api.Config{
			ListenAddr: flagListenAddr,
			Queue:      queue.NewRequestQueueManager(100, 50, &logger),
			Logger:     &logger,
			CORS:       middleware.DefaultCORSConfig(flagAllowedOrigins...),
		},
		router.UtilsRoutes("/api", checks),
		router.GatewayRoutes(handler),
	)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Run(ctx)
	}()

	select {
	case err := <-errc:
		logger.Error().Err(err).Msg("unexpected error, shutting down")
		stop()
		<-serverErr
		return err
	case err := <-serverErr:
		return err
	}
}

func runToken(cmd *cobra.Command, args []string) error {
	if err := env.Require(env.UserSecretKey); err != nil {
		return err
	}
	token, err := auth.CreateToken([]byte(env.Get(env.UserSecretKey)), flagTokenUser, time.Now().Add(flagTokenTTL))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
	return err
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

// originChecker allows every origin when none are configured.
func originChecker(origins []string) func(r *http.Request) bool {
	if len(origins) == 0 {
		return nil
	}
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}
