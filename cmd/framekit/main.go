// Package main implements the framekit binary.
// In query mode it loads one or more sources, applies a projection, a filter
// and an optional aggregate, and prints the result. In serve mode it runs the
// HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/framekit/framekit/internal/app"
	"github.com/framekit/framekit/internal/config"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	var (
		configFile  string
		envFile     string
		dataDir     string
		mode        string
		addr        string
		storageType string
		kinds       string
		delimiter   string
		sqlitePath  string
		sqlQuery    string
		selectCols  string
		where       string
		op          string
		labels      string
		showVersion bool
	)

	flag.StringVar(&configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flag.StringVar(&envFile, "env", ".env", "Path to a .env file loaded before FRAMEKIT_* variables are read")
	flag.StringVar(&dataDir, "data-dir", "", "Root directory of local sources")
	flag.StringVar(&mode, "mode", "", "Run mode: query or serve")
	flag.StringVar(&addr, "addr", "", "HTTP listen address (serve mode)")
	flag.StringVar(&storageType, "storage", "", "Storage type: local or s3")
	flag.StringVar(&kinds, "kinds", "", "Comma separated column kinds, e.g. 1,4,3 (1=text 2=bool 3=float 4=int)")
	flag.StringVar(&delimiter, "delimiter", "", "CSV field separator")
	flag.StringVar(&sqlitePath, "sqlite", "", "Read from this SQLite database instead of CSV sources")
	flag.StringVar(&sqlQuery, "sql", "", "Query to run against -sqlite")
	flag.StringVar(&selectCols, "select", "", "Comma separated columns to keep")
	flag.StringVar(&where, "where", "", "Row filter, e.g. \"PPG >= 25 AND Games < 1400\"")
	flag.StringVar(&op, "op", "", "Aggregate: column_op, average, add_rows, count, sum, min, max, avg")
	flag.StringVar(&labels, "labels", "", "Comma separated columns the aggregate reads")
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "framekit - typed in-memory frames from delimited text\n\n")
		fmt.Fprintf(os.Stderr, "Usage: framekit [options] [source ...]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  framekit -kinds 1,4,3 -where 'PPG >= 25' players.csv\n")
		fmt.Fprintf(os.Stderr, "  framekit -kinds 1,4,3 -op average -labels PPG season1.csv season2.csv\n")
		fmt.Fprintf(os.Stderr, "  cat players.csv | framekit -kinds 1,4,3 -select Player,PPG -\n")
		fmt.Fprintf(os.Stderr, "  framekit -mode serve -addr :8080\n")
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  FRAMEKIT_MODE           Run mode (query, serve)\n")
		fmt.Fprintf(os.Stderr, "  FRAMEKIT_DATA_DIR       Root directory of local sources\n")
		fmt.Fprintf(os.Stderr, "  FRAMEKIT_HTTP_ADDR      HTTP listen address\n")
		fmt.Fprintf(os.Stderr, "  FRAMEKIT_INGEST_KINDS   Default column kinds\n")
		fmt.Fprintf(os.Stderr, "  FRAMEKIT_STORAGE_TYPE   Storage type (local, s3)\n")
		fmt.Fprintf(os.Stderr, "  FRAMEKIT_S3_BUCKET      Bucket for s3 storage\n")
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("framekit version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	cfg, err := loadConfig(configFile, envFile, dataDir, mode, addr, storageType, delimiter)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	if cfg.ShouldServe() {
		serve(ctx, cfg)
		return
	}

	p := app.Pipeline{
		Sources: flag.Args(),
		SQLite:  sqlitePath,
		SQL:     sqlQuery,
		Kinds:   kinds,
		Select:  splitList(selectCols),
		Where:   where,
		Op:      op,
		Labels:  splitList(labels),
		Stdin:   os.Stdin,
	}
	if err := app.RunPipeline(ctx, cfg, p, os.Stdout); err != nil {
		log.Fatalf("framekit: %v", err)
	}
}

func serve(ctx context.Context, cfg *config.Config) {
	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	log.Printf("framekit %s starting (storage=%s, data_dir=%s)", version, cfg.Storage.Type, cfg.DataDir)

	if err := application.Start(ctx); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	if err := application.WaitForShutdown(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
		os.Exit(1)
	}
}

// loadConfig layers defaults, the config file, the .env file, FRAMEKIT_*
// variables and finally command line flags.
func loadConfig(configFile, envFile, dataDir, mode, addr, storageType, delimiter string) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if configFile != "" {
		cfg, err = config.LoadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else {
		cfg = config.DefaultConfig()
	}

	if envFile != "" {
		if err := config.LoadDotEnv(envFile); err != nil {
			return nil, err
		}
	}
	config.LoadFromEnv(cfg)

	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if mode != "" {
		cfg.Mode = config.Mode(mode)
	}
	if addr != "" {
		cfg.HTTP.Addr = addr
	}
	if storageType != "" {
		cfg.Storage.Type = storageType
	}
	if delimiter != "" {
		cfg.Ingest.Delimiter = delimiter
	}

	return cfg, nil
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
