// Package bootstrap wires tableserver's dependencies together with a
// dig container, the same DI approach the teacher project uses to
// assemble its own server process.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/dig"

	"tagtable/internal/engine"
	"tagtable/internal/platform/changesbus"
	"tagtable/internal/platform/config"
	"tagtable/internal/server"
)

// Build assembles the dig container: config, the opened table, an
// optional changes-bus publisher, and the HTTP handler built on top of
// them.
func Build(args []string) (*dig.Container, error) {
	c := dig.New()

	providers := []any{
		func() ([]string, error) { return args, nil },
		func(args []string) (*config.Config, error) { return config.Load(args) },
		provideTable,
		providePublisher,
		func(t *engine.Table, pub *changesbus.Publisher) http.Handler {
			return server.New(t, pub)
		},
	}
	for _, p := range providers {
		if err := c.Provide(p); err != nil {
			return nil, fmt.Errorf("bootstrap: provide: %w", err)
		}
	}
	return c, nil
}

func provideTable(cfg *config.Config) (*engine.Table, error) {
	var t *engine.Table
	var err error
	if engine.Exists(cfg.DataDir, cfg.TableName) {
		t, err = engine.Open(cfg.DataDir, cfg.TableName)
	} else {
		t, err = engine.CreateAndOpen(cfg.DataDir, cfg.TableName, cfg.BlockSize)
	}
	if err != nil {
		return nil, fmt.Errorf("bootstrap: open table: %w", err)
	}
	t.SetFullCompaction(cfg.FullCompaction)
	t.SetDangerous(cfg.Dangerous)
	return t, nil
}

// providePublisher returns a nil *Publisher (not an error) when the
// bus can't be bound, so a table server can still run standalone
// without a changes-bus listener nearby.
func providePublisher(cfg *config.Config) (*changesbus.Publisher, error) {
	pub, err := changesbus.NewPublisher(context.Background(), cfg.ChangesBusAddr)
	if err != nil {
		return nil, nil
	}
	return pub, nil
}
