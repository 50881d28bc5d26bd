package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"eventchat/internal/chatapi"
	"eventchat/internal/config"
	"eventchat/internal/dom"
	"eventchat/internal/tui"
	"eventchat/internal/widget"
)

var (
	flagURL     string
	flagEvent   string
	flagToken   string
	flagPoll    time.Duration
	flagPush    bool
	flagDebug   bool
	flagLogFile string
	flagYes     bool
)

var rootCmd = &cobra.Command{
	Use:           "chat",
	Short:         "Terminal client for event chats",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Open the chat of an event in the terminal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		cfg, lg, closeLog, err := setup(cmd, flagLogFile, true)
		if err != nil {
			return err
		}
		defer closeLog()

		prompt := &tui.Prompter{}
		w, err := newWidget(ctx, cfg, lg, prompt)
		if err != nil {
			return err
		}

		p := tea.NewProgram(tui.New(ctx, w), tea.WithAltScreen(), tea.WithContext(ctx))
		prompt.Attach(p.Send)
		w.OnChange(tui.Notify(p))

		done := make(chan error, 1)
		go func() { done <- w.Run(ctx) }()

		_, err = p.Run()
		cancel()
		<-done
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	},
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Poll once and print the rendered message container",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, lg, closeLog, err := setup(cmd, "", false)
		if err != nil {
			return err
		}
		defer closeLog()

		w, err := newWidget(cmd.Context(), cfg, lg, stdinPrompter(cmd))
		if err != nil {
			return err
		}
		w.Refresh(cmd.Context())
		w.View(func(doc *dom.Document) {
			fmt.Fprintln(cmd.OutOrStdout(), doc.ByID(widget.IDMessages).OuterHTML())
		})
		return nil
	},
}

var sendCmd = &cobra.Command{
	Use:   "send TEXT...",
	Short: "Send a message",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, lg, closeLog, err := setup(cmd, "", false)
		if err != nil {
			return err
		}
		defer closeLog()

		w, err := newWidget(cmd.Context(), cfg, lg, stdinPrompter(cmd))
		if err != nil {
			return err
		}
		w.SetInput(strings.Join(args, " "))
		if !w.Submit(cmd.Context()) {
			var msg string
			w.View(func(doc *dom.Document) { msg = doc.ByID(widget.IDErrors).Text() })
			if msg == "" {
				msg = "message not sent"
			}
			return errors.New(msg)
		}
		var count string
		w.View(func(doc *dom.Document) { count = doc.ByID(widget.IDCounter).Text() })
		fmt.Fprintf(cmd.OutOrStdout(), "sent (%s messages)\n", count)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete MESSAGE_ID",
	Short: "Delete one of your messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, lg, closeLog, err := setup(cmd, "", false)
		if err != nil {
			return err
		}
		defer closeLog()

		w, err := newWidget(cmd.Context(), cfg, lg, stdinPrompter(cmd))
		if err != nil {
			return err
		}
		w.Refresh(cmd.Context())

		var btn dom.Element
		w.View(func(doc *dom.Document) {
			for _, b := range doc.ByID(widget.IDMessages).QueryAll(".delete-btn") {
				if b.Data("message-id") == args[0] {
					btn = b
					return
				}
			}
		})
		if !btn.Exists() {
			return fmt.Errorf("message %s is not in the chat or cannot be deleted by you", args[0])
		}
		if !w.Delete(cmd.Context(), args[0], btn) {
			return errors.New("message not deleted")
		}
		fmt.Fprintln(cmd.OutOrStdout(), "deleted")
		return nil
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagURL, "url", "", "server base URL (CHAT_URL)")
	pf.StringVarP(&flagEvent, "event", "e", "", "event id (CHAT_EVENT_ID)")
	pf.StringVar(&flagToken, "token", "", "viewer token (CHAT_TOKEN)")
	pf.DurationVar(&flagPoll, "poll", 0, "poll interval (CHAT_POLL_INTERVAL)")
	pf.BoolVar(&flagPush, "push", false, "also refresh on websocket change events (CHAT_PUSH)")
	pf.BoolVar(&flagDebug, "debug", false, "verbose logging")

	runCmd.Flags().StringVar(&flagLogFile, "log", "", "write logs to this file")
	deleteCmd.Flags().BoolVarP(&flagYes, "yes", "y", false, "do not ask for confirmation")

	rootCmd.AddCommand(runCmd, snapshotCmd, sendCmd, deleteCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// setup loads the client configuration, applies flags over it and builds the
// logger. Logs go to logFile when set, else to stderr unless fullscreen.
func setup(cmd *cobra.Command, logFile string, fullscreen bool) (config.Client, zerolog.Logger, func(), error) {
	_ = godotenv.Load()

	cfg, err := config.LoadClient()
	if err != nil {
		return cfg, zerolog.Nop(), func() {}, err
	}
	flags := cmd.Flags()
	if flags.Changed("url") {
		cfg.BaseURL = strings.TrimRight(flagURL, "/")
	}
	if flags.Changed("event") {
		cfg.EventID = flagEvent
	}
	if flags.Changed("token") {
		cfg.Token = flagToken
	}
	if flags.Changed("poll") {
		cfg.PollInterval = flagPoll
	}
	if flags.Changed("push") {
		cfg.Push = flagPush
	}
	if cfg.EventID == "" {
		return cfg, zerolog.Nop(), func() {}, errors.New("no event: pass --event or set CHAT_EVENT_ID")
	}

	level := zerolog.WarnLevel
	if flagDebug {
		level = zerolog.DebugLevel
	}

	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	closeLog := func() {}
	switch {
	case logFile != "":
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return cfg, zerolog.Nop(), closeLog, fmt.Errorf("open log file: %w", err)
		}
		out, closeLog = f, func() { f.Close() }
	case fullscreen:
		out = io.Discard
	}
	lg := zerolog.New(out).Level(level).With().Timestamp().Logger()
	return cfg, lg, closeLog, nil
}

// newWidget fetches the event page and binds a widget to it
func newWidget(ctx context.Context, cfg config.Client, lg zerolog.Logger, prompt widget.Prompter) (*widget.Widget, error) {
	api := chatapi.New(cfg.BaseURL, chatapi.WithToken(cfg.Token), chatapi.WithTimeout(cfg.Timeout))

	doc, err := api.Page(ctx, cfg.EventID)
	if err != nil {
		return nil, fmt.Errorf("load chat page: %w", err)
	}

	opts := widget.Options{
		EventID:      cfg.EventID,
		PollInterval: cfg.PollInterval,
		Logger:       lg,
	}
	if cfg.Push {
		opts.Feed = api
	}
	return widget.New(doc, api, prompt, opts)
}

func stdinPrompter(cmd *cobra.Command) widget.Prompter {
	return &linePrompter{in: cmd.InOrStdin(), out: cmd.ErrOrStderr(), yes: flagYes}
}
