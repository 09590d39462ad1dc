package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"vidnest/accounts/internal/config"
	"vidnest/accounts/internal/database"
	"vidnest/accounts/internal/log"
)

func main() {
	target := flag.Int64("to", 0, "version to roll back to (down only)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-to version] up|down|status\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load(config.ProcessMigrate)
	if err != nil {
		panic(err)
	}
	logger := log.New(cfg.Environment, cfg.Log.Level)

	migrator, err := database.NewMigrator(cfg.Postgres.DSN, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init migrator")
	}

	ctx := context.Background()
	switch flag.Arg(0) {
	case "up", "":
		err = migrator.Up(ctx)
	case "down":
		err = migrator.Down(ctx, *target)
	case "status":
		err = migrator.Status(ctx)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("migration failed")
	}
}
