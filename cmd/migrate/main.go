package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"

	"github.com/seoul-location-services/internal/config"
	"github.com/seoul-location-services/internal/pkg/logger"
)

func main() {
	dir := flag.String("dir", "migrations", "directory with *.up.sql / *.down.sql files")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: migrate [-dir migrations] <up|down|version>")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	m, err := migrate.New("file://"+*dir, cfg.GetDatabaseURL())
	if err != nil {
		log.Fatal("Failed to initialize migrations", zap.Error(err))
	}
	defer m.Close()

	switch cmd := flag.Arg(0); cmd {
	case "up":
		err = m.Up()
	case "down":
		err = m.Steps(-1)
	case "version":
		version, dirty, verr := m.Version()
		if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
			log.Fatal("Failed to read migration version", zap.Error(verr))
		}
		log.Info("Migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))
		return
	default:
		log.Fatal("Unknown command", zap.String("command", cmd))
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatal("Migration failed", zap.Error(err))
	}
	log.Info("Migrations applied", zap.String("command", flag.Arg(0)))
}
