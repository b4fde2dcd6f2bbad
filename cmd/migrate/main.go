package main

import (
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"

	"github.com/kapu/post-reactors/internal/config"
	"github.com/kapu/post-reactors/internal/service/database"
	"github.com/kapu/post-reactors/internal/util"
)

const (
	exitSuccess = 0
	exitFailure = 1
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: migrate <up|down [steps]|version>")
		return exitFailure
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return exitFailure
	}

	logger, err := util.NewLogger(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return exitFailure
	}
	defer logger.Sync()

	postgres, err := database.NewPostgresService(cfg.Postgres, logger)
	if err != nil {
		logger.Error("Failed to connect to database", zap.Error(err))
		return exitFailure
	}
	defer postgres.Close()

	db := postgres.GetDB()

	switch args[0] {
	case "up":
		err = database.MigrateUp(db, logger)
	case "down":
		steps := 1
		if len(args) > 1 {
			steps, err = strconv.Atoi(args[1])
			if err != nil || steps <= 0 {
				fmt.Fprintf(os.Stderr, "Invalid step count: %q\n", args[1])
				return exitFailure
			}
		}
		err = database.MigrateDown(db, steps, logger)
	case "version":
		version, dirty, verr := database.MigrationVersion(db)
		if verr != nil {
			err = verr
			break
		}
		fmt.Printf("version=%d dirty=%t\n", version, dirty)
	default:
		fmt.Fprintf(os.Stderr, "Invalid command: %q (must be up, down or version)\n", args[0])
		return exitFailure
	}

	if err != nil {
		logger.Error("Migration failed", zap.String("command", args[0]), zap.Error(err))
		return exitFailure
	}
	return exitSuccess
}
