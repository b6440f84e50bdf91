package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"signal-simulation-service/internal/adapters/repositories"
	"signal-simulation-service/internal/config"
	"signal-simulation-service/internal/platform/db"
	"signal-simulation-service/internal/platform/logging"
	"signal-simulation-service/internal/services"
	"text/tabwriter"
)

const usage = `usage: dbtool <command> [flags]

commands:
  init            create the schema and generate towers if the store is empty
  list            print the persisted towers
  reset           delete every tower so the next start generates a new layout
  import <file>   load a fixed layout from JSON into an empty store
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logging.New(cfg.Logging, os.Stderr)

	if err := run(context.Background(), cfg, log, os.Args[1], os.Args[2:]); err != nil {
		log.Error("dbtool failed", slog.String("command", os.Args[1]), slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger, cmd string, args []string) error {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	yes := fs.Bool("yes", false, "confirm destructive commands")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := db.Open(ctx, cfg.Store.Driver, cfg.Store.DSN(), cfg.Store.ProbeTimeout)
	if err != nil {
		return err
	}
	defer store.Close()

	log.Info("initializing database schema", slog.String("driver", cfg.Store.Driver))
	if err := repositories.InitSchema(ctx, store); err != nil {
		return err
	}
	repo := repositories.NewSQLTowerRepository(store, repositories.Dialect(cfg.Store.Driver))

	switch cmd {
	case "init":
		gen, err := services.NewTowerLayoutGenerator(cfg.Layout, nil)
		if err != nil {
			return err
		}
		res, err := services.InitializeTowers(ctx, services.InitializeTowersRequest{ProbeTimeout: cfg.Store.ProbeTimeout}, repo, gen, log)
		if err != nil {
			return err
		}
		log.Info("towers ready", slog.Int("count", res.Count), slog.Bool("generated", res.Generated))
		return nil

	case "list":
		towers, err := repo.ListTowers(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tX\tY")
		for _, t := range towers {
			fmt.Fprintf(tw, "%s\t%d\t%d\n", t.ID, t.X, t.Y)
		}
		return tw.Flush()

	case "reset":
		if !*yes {
			return errors.New("reset deletes every tower; rerun with -yes")
		}
		n, err := repo.DeleteAllTowers(ctx)
		if err != nil {
			return err
		}
		log.Info("towers deleted", slog.Int64("count", n))
		return nil

	case "import":
		if fs.NArg() != 1 {
			return fmt.Errorf("import: expected exactly one JSON file, got %d args", fs.NArg())
		}
		towers, err := repositories.LoadTowersJSON(fs.Arg(0))
		if err != nil {
			return err
		}
		inserted, err := repo.InsertTowersIfEmpty(ctx, towers)
		if err != nil {
			return err
		}
		if !inserted {
			return errors.New("import: store already holds towers; run reset first")
		}
		log.Info("towers imported", slog.Int("count", len(towers)), slog.String("file", fs.Arg(0)))
		return nil

	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}
