// Command migrate applies or inspects the rapo schema (rapo_config,
// rapo_log, rapo_scheduler, rapo_web_api, rapo_checkpoint) using the same
// database configuration the scheduler and web API load at startup.
package main

import (
	"context"
	"embed"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pressly/goose/v3"
	"github.com/rapo-engine/rapo/internal/config"
	"github.com/rapo-engine/rapo/internal/gateway"
	internallog "github.com/rapo-engine/rapo/internal/log"
)

//go:embed *.sql
var embedded embed.FS

func main() {
	configPath := flag.String("config", "", "path to rapo.ini (defaults to $RAPO_CONFIG or ~/.rapo/rapo.ini)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		log.Fatal("usage: migrate [-config path] <up|down|status|redo>")
	}
	command := args[0]

	bootLogger := internallog.New("local", slog.LevelInfo)

	cfg, err := config.Load(*configPath, bootLogger)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := internallog.New(cfg.Logging.Env, internallog.Level(cfg.Logging.Level))

	pool, err := gateway.Open(ctx, cfg.Database, logger)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	dialect, err := gooseDialect(cfg.Database.VendorName)
	if err != nil {
		log.Fatalf("migrate: %v", err)
	}

	goose.SetBaseFS(embedded)
	if err := goose.SetDialect(dialect); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	if err := goose.RunContext(ctx, command, pool.DB.DB, "."); err != nil {
		log.Fatalf("migrate %s: %v", command, err)
	}
}

// gooseDialect maps the rapo database vendor (§2: sqlite and oracle are
// the only supported vendors) onto goose's own dialect name.
func gooseDialect(vendor string) (string, error) {
	switch vendor {
	case "sqlite":
		return "sqlite3", nil
	case "oracle":
		return "oracle", nil
	default:
		return "", fmt.Errorf("unsupported database vendor %q", vendor)
	}
}
