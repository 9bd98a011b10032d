// Command tableserver runs tagtable's HTTP API against a single table.
package main

import (
	"fmt"
	"net/http"
	"os"

	"tagtable/internal/bootstrap"
	"tagtable/internal/platform/config"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "tableserver:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	container, err := bootstrap.Build(args)
	if err != nil {
		return err
	}
	return container.Invoke(func(cfg *config.Config, handler http.Handler) error {
		fmt.Printf("tableserver listening on %s (table %q in %s)\n", cfg.HTTPAddr, cfg.TableName, cfg.DataDir)
		return http.ListenAndServe(cfg.HTTPAddr, handler)
	})
}
