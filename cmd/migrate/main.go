package main

import (
	"errors"
	"flag"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/rmendes/userhub/internal/config"
	"github.com/rmendes/userhub/internal/observability"
)

func main() {
	var (
		dir  = flag.String("dir", "migrations", "migrations directory")
		down = flag.Bool("down", false, "roll back one migration instead of applying all")
	)
	flag.Parse()

	cfg := config.Load()
	log := observability.NewLogger(cfg.Env)

	migrator, err := migrate.New("file://"+*dir, cfg.DBURL)

	if err != nil {
		log.Error("init migrator failed", "err", err)
		os.Exit(1)
	}

	defer func() {
		_, _ = migrator.Close()
	}()

	if *down {
		err = migrator.Steps(-1)
	} else {
		err = migrator.Up()
	}

	if err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("no pending migrations")
			return
		}

		log.Error("migration failed", "err", err)
		os.Exit(1)
	}

	log.Info("migrations applied")
}
