// Command moviesearch runs the prompt-to-movies pipeline from the terminal.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"findingmovie/searchservice/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(openPipeline).ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// openPipeline builds the same pipeline as the server. Logs go to stderr so
// --json output stays clean.
func openPipeline(ctx context.Context) (searcher, func(), error) {
	cfg := app.LoadConfig()
	logger := app.NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	slog.SetDefault(logger)

	pipeline, err := app.BuildPipeline(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := pipeline.Close(context.Background()); err != nil {
			logger.Warn("close connections", slog.String("error", err.Error()))
		}
	}
	return pipeline.Service, closeFn, nil
}
