package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"pandacare-chat/internal/chatapi"
	"pandacare-chat/internal/dto"
	"pandacare-chat/internal/env"
	"pandacare-chat/internal/logging"
	"pandacare-chat/internal/session"
	"pandacare-chat/internal/widget"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var rootCmd = &cobra.Command{
	Use:   "chat-client",
	Short: "Terminal chat widget",
	Long: `chat-client opens the chat widget against a page host.

Lines typed on stdin are sent to the current room. Commands:
  /room <room-id> [recipient-id]   switch room and render its history
  /quit                            close the socket and exit`,
	SilenceUsage: true,
	RunE:         runClient,
}

var (
	flagPageURL    string
	flagSessionID  string
	flagRoom       string
	flagRecipient  string
	flagHistory    bool
	flagChatAPIURL string
	flagWidth      int
	flagLogLevel   string
)

func init() {
	bindFlags(rootCmd.Flags())
}

func bindFlags(flags *pflag.FlagSet) {
	flags.StringVar(&flagPageURL, "page-url", env.Get(env.WebURL), "page host base URL (env WEB_URL)")
	flags.StringVar(&flagSessionID, "session-id", env.Get(env.SessionID), "session cookie value (env CHAT_SESSION_ID)")
	flags.StringVar(&flagRoom, "room", "", "room to select on start")
	flags.StringVar(&flagRecipient, "recipient", "", "recipient for the start room")
	flags.BoolVar(&flagHistory, "history", true, "load room history from the chat API")
	flags.StringVar(&flagChatAPIURL, "chat-api-url", "", "chat API base URL for history; defaults to the one handed out by the page host")
	flags.IntVar(&flagWidth, "width", 72, "render width")
	flags.StringVar(&flagLogLevel, "log-level", env.GetOrDefault(env.LogLevel, "warn"), "log level (env LOG_LEVEL)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("chat-client failed")
	}
}

func runClient(cmd *cobra.Command, args []string) error {
	logger, err := logging.NewConsole(os.Stderr, flagLogLevel)
	if err != nil {
		return err
	}
	if flagPageURL == "" {
		return errors.New("--page-url or WEB_URL is required")
	}

	httpClient, err := newHTTPClient(flagPageURL, flagSessionID)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	w, ep, err := widget.Open(openCtx, widget.OpenConfig{
		PageURL:    flagPageURL,
		HTTPClient: httpClient,
		View:       widget.NewTextView(cmd.OutOrStdout(), flagWidth),
		Logger:     &logger,
	})
	cancel()
	if err != nil {
		return err
	}
	defer w.Close()
	logger.Info().Str("api_url", ep.APIURL).Msg("connected")

	apiURL := flagChatAPIURL
	if apiURL == "" {
		apiURL = ep.APIURL
	}
	rooms := chatapi.NewClient(apiURL, httpClient)

	selectRoom := func(roomID, recipient string) {
		var recipientID *string
		if recipient != "" {
			recipientID = &recipient
		}
		w.SelectRoom(roomID, recipientID, loadHistory(ctx, rooms, ep.AccessToken, roomID, &logger))
	}
	if flagRoom != "" {
		selectRoom(flagRoom, flagRecipient)
	}

	runErr := make(chan error, 1)
	go func() {
		runErr <- w.Run(ctx)
	}()

	lines := make(chan string)
	go readLines(cmd.InOrStdin(), lines)

	for {
		select {
		case err := <-runErr:
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err

		case line, ok := <-lines:
			if !ok {
				stop()
				<-runErr
				return nil
			}
			switch {
			case line == "/quit":
				stop()
				<-runErr
				return nil

			case strings.HasPrefix(line, "/room"):
				fields := strings.Fields(line)
				if len(fields) < 2 {
					fmt.Fprintln(cmd.ErrOrStderr(), "usage: /room <room-id> [recipient-id]")
					continue
				}
				recipient := ""
				if len(fields) > 2 {
					recipient = fields[2]
				}
				selectRoom(fields[1], recipient)

			default:
				w.Input().Set(line)
				if _, err := w.Submit(); err != nil {
					logger.Error().Err(err).Msg("send failed")
				}
			}
		}
	}
}

// newHTTPClient returns a client whose jar carries the session cookie for
// the page host.
func newHTTPClient(pageURL, sessionID string) (*http.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	if sessionID != "" {
		u, err := url.Parse(pageURL)
		if err != nil {
			return nil, fmt.Errorf("parse page url: %w", err)
		}
		jar.SetCookies(u, []*http.Cookie{{Name: session.CookieName, Value: sessionID, Path: "/"}})
	}
	return &http.Client{Jar: jar, Timeout: 10 * time.Second}, nil
}

func loadHistory(ctx context.Context, rooms *chatapi.Client, token, roomID string, logger *zerolog.Logger) []dto.Message {
	if !flagHistory {
		return nil
	}
	list, err := rooms.ListRooms(ctx, token)
	if err != nil {
		logger.Warn().Err(err).Msg("history unavailable")
		return nil
	}
	for _, room := range list {
		if room.RoomID == roomID {
			return room.Messages
		}
	}
	return nil
}

func readLines(in io.Reader, out chan<- string) {
	defer close(out)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		out <- scanner.Text()
	}
}
