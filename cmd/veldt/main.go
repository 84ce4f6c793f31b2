// Command veldt is a terminal client for the Veldt research answer service.
//
// Usage:
//
//	VELDT_TOKEN=vt-... veldt [flags] [question]
//
// With a question argument the answer is streamed to stdout and the
// program exits. Without one an interactive TUI starts.
//
// Flags:
//
//	-base-url string   API base URL (default: https://api.veldt.dev)
//	-mode string       Research mode: quick, deep (default: quick)
//	-token string      API token (overrides VELDT_TOKEN)
//	-debug             Enable debug logging
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/veldt-ai/veldt"
	"github.com/veldt-ai/veldt/api"
	"github.com/veldt-ai/veldt/logger"
	"github.com/veldt-ai/veldt/markdown"
	"github.com/veldt-ai/veldt/tui"
)

const outputWidth = 100

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "veldt: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A .env file is optional.
	_ = godotenv.Load()

	var (
		baseURL = flag.String("base-url", "", "API base URL")
		mode    = flag.String("mode", veldt.ModeQuick, "Research mode: quick, deep")
		token   = flag.String("token", "", "API token (overrides VELDT_TOKEN)")
		debug   = flag.Bool("debug", false, "Enable debug logging")
	)
	flag.Parse()

	// Handle OS signals for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	apiToken := *token
	if apiToken == "" {
		apiToken = os.Getenv("VELDT_TOKEN")
	}

	log := logger.New(
		logger.WithDebug(*debug),
		logger.WithPretty(true),
		logger.WithWriter(os.Stderr),
	)

	var clientOpts []api.Option
	if *baseURL != "" {
		clientOpts = append(clientOpts, api.WithBaseURL(*baseURL))
	}
	clientOpts = append(clientOpts, api.WithLogger(log))
	client := api.New(clientOpts...)

	if query := strings.TrimSpace(strings.Join(flag.Args(), " ")); query != "" {
		return askOnce(ctx, client, log, veldt.Request{Query: query, Mode: *mode, Token: apiToken})
	}

	theme := veldt.DefaultTheme()
	askMode, askToken := *mode, apiToken
	askFn := func(ctx context.Context, query string, h veldt.Handler) error {
		return client.Ask(ctx, veldt.Request{Query: query, Mode: askMode, Token: askToken}, h)
	}

	if err := tui.Run(ctx, tui.New(askFn, theme)); err != nil {
		return fmt.Errorf("TUI: %w", err)
	}
	return nil
}

// askOnce streams a single question to stdout: progress on stderr via the
// logger, the final answer rendered as markdown on stdout.
func askOnce(ctx context.Context, client *api.Client, log *slog.Logger, req veldt.Request) error {
	theme := veldt.DefaultTheme()
	var final *veldt.Event

	h := veldt.Handler{
		OnEvent: func(ev veldt.Event) {
			switch ev.Type {
			case veldt.KindAgentStart:
				log.Info("agent started", "agent", ev.Agent)
			case veldt.KindAgentComplete:
				log.Info("agent complete", "agent", ev.Agent, "elapsed", ev.Elapsed)
			case veldt.KindCacheHit:
				log.Info("answer served from cache")
			case veldt.KindFinal:
				final = &ev
			}
		},
		OnError: func(err error) {
			var ee *veldt.EventError
			if errors.As(err, &ee) {
				log.Warn("stream error", "message", ee.Message)
			}
		},
	}

	if err := client.Ask(ctx, req, h); err != nil {
		return err
	}
	if final == nil {
		return errors.New("stream ended without an answer")
	}

	fmt.Println(markdown.Render(final.Answer, outputWidth, theme))
	for i, d := range final.Documents {
		fmt.Printf("  %d. %s", i+1, d.Title)
		if d.URL != "" {
			fmt.Printf(" (%s)", d.URL)
		}
		fmt.Println()
	}
	if final.Confidence > 0 {
		fmt.Printf("confidence %.2f\n", final.Confidence)
	}
	return nil
}
