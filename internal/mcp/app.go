package mcp

import (
	"github.com/felixgeelhaar/todo/adapter/cli"
	"github.com/felixgeelhaar/todo/internal/app"
)

// NewCLIApp creates a CLI application instance backed by the provided container.
func NewCLIApp(container *app.Container) *cli.App {
	cliApp := cli.NewApp(container.Interactor, container.Logger)
	if container.Syncer != nil {
		cliApp.WithSyncer(container.Syncer)
	}
	return cliApp
}
