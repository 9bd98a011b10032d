// Package config loads tableserver's runtime configuration from
// command-line flags and a local .env file, the same layering the
// teacher project uses for its own config-server settings.
package config

import (
	"flag"
	"fmt"

	"github.com/joho/godotenv"
)

// Config holds every knob tableserver needs to open a table and serve
// it over HTTP, plus the changes-bus address it publishes committed
// revisions to.
type Config struct {
	DataDir        string
	TableName      string
	BlockSize      int
	FullCompaction bool
	Dangerous      bool
	HTTPAddr       string
	ChangesBusAddr string
}

// Load parses flags (falling back to .env-provided defaults loaded via
// godotenv, then hardcoded defaults) into a Config. A missing .env file
// is not an error - godotenv.Load's failure is swallowed, matching the
// teacher's own tolerant bootstrap.
func Load(args []string) (*Config, error) {
	_ = godotenv.Load(".env")

	fs := flag.NewFlagSet("tableserver", flag.ContinueOnError)
	dataDir := fs.String("data-dir", envOr("TAGTABLE_DATA_DIR", "./data"), "directory holding the table's files")
	tableName := fs.String("table", envOr("TAGTABLE_NAME", "main"), "table name within data-dir")
	blockSize := fs.Int("block-size", envIntOr("TAGTABLE_BLOCK_SIZE", 8192), "block size in bytes for a newly created table")
	fullCompaction := fs.Bool("full-compaction", envBoolOr("TAGTABLE_FULL_COMPACTION", false), "full-compaction setting stored on the table (block packing does not consult it)")
	dangerous := fs.Bool("dangerous", envBoolOr("TAGTABLE_DANGEROUS", false), "record dangerous mode in the base file (writes stay copy-on-write)")
	httpAddr := fs.String("http-addr", envOr("TAGTABLE_HTTP_ADDR", ":8080"), "address tableserver's HTTP API listens on")
	changesBusAddr := fs.String("changes-bus-addr", envOr("TAGTABLE_CHANGES_BUS_ADDR", "tcp://127.0.0.1:5556"), "ZeroMQ PUB address committed changesets are published to")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return &Config{
		DataDir:        *dataDir,
		TableName:      *tableName,
		BlockSize:      *blockSize,
		FullCompaction: *fullCompaction,
		Dangerous:      *dangerous,
		HTTPAddr:       *httpAddr,
		ChangesBusAddr: *changesBusAddr,
	}, nil
}
