package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/todo/adapter/cli"
	"github.com/felixgeelhaar/todo/adapter/cli/task"
	"github.com/felixgeelhaar/todo/internal/app"
	"github.com/felixgeelhaar/todo/pkg/config"
	"github.com/felixgeelhaar/todo/pkg/observability"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Quiet by default; --verbose lowers the level.
	level := new(slog.LevelVar)
	level.Set(slog.LevelWarn)
	logCfg := observability.DefaultLogConfig()
	logCfg.Leveler = level
	logCfg.ServiceVersion = cli.Version
	logger := observability.NewLogger(logCfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		cancel()
	}()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	defer container.Close()

	// Lets `task watch` see changes made by other processes.
	if err := container.StartEvents(ctx); err != nil {
		logger.Warn("task events unavailable, watch will not refresh", "error", err)
	}

	cliApp := cli.NewApp(container.Interactor, logger)
	cliApp.LogLevel = level
	if container.Syncer != nil {
		cliApp.WithSyncer(container.Syncer)
	}

	root := cli.NewRootCmd(cliApp)
	root.AddCommand(task.NewCmd(cliApp))

	if err := cli.Execute(ctx, root); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}
