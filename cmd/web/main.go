package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AdamBeresnev/round-robin-app/internal/config"
	"github.com/AdamBeresnev/round-robin-app/internal/db"
	"github.com/AdamBeresnev/round-robin-app/internal/metrics"
	"github.com/AdamBeresnev/round-robin-app/internal/middleware"
	"github.com/AdamBeresnev/round-robin-app/internal/seed"
	"github.com/AdamBeresnev/round-robin-app/internal/store"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	app := &cli.App{
		Name:  "web",
		Usage: "Round-robin tournament registration, scheduling and standings",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Value:   "config.yaml",
				Usage:   "path to the YAML config file",
				EnvVars: []string{"CONFIG_FILE"},
			},
		},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Apply database migrations and exit",
				Action: migrateCmd,
			},
			{
				Name:  "seed",
				Usage: "Fill the database with fake tournaments",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "clean", Usage: "delete all tournaments first"},
					&cli.Uint64Flag{Name: "seed", Value: 42, Usage: "random seed"},
				},
				Action: seedCmd,
			},
			{
				Name:  "token",
				Usage: "Print a signed bearer token for local testing",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Value: "Dev Bruker"},
					&cli.StringFlag{Name: "email", Value: "dev@nav.no"},
					&cli.StringFlag{Name: "navident", Value: "D123456"},
					&cli.StringSliceFlag{Name: "group", Usage: "group id claim, repeatable"},
					&cli.DurationFlag{Name: "ttl", Value: time.Hour},
				},
				Action: tokenCmd,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	setupLogger(cfg.Server.DevMode)
	return cfg, nil
}

func setupLogger(devMode bool) {
	var handler slog.Handler
	if devMode {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, nil)
	}
	slog.SetDefault(slog.New(handler))
}

func openDatabase(cfg *config.Config) (*sqlx.DB, error) {
	database, err := db.InitDB(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(database.DB); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return database, nil
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	reader, err := db.InitReadDB(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer reader.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	middleware.InitAuth(cfg.Auth.Azure)

	sessionManager := scs.New()
	sessionManager.Lifetime = cfg.Auth.SessionLifetime
	sessionManager.Store = sqlite3store.New(database.DB)
	sessionManager.Cookie.Secure = !cfg.Server.DevMode

	st := store.NewTournamentStore(database).WithReader(reader)
	app := newApplication(cfg, st, sessionManager, metrics.New(registry))

	servers := []*http.Server{{
		Addr:              cfg.Server.ListenAddr,
		Handler:           app.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}}
	if cfg.Server.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(registry))
		servers = append(servers, &http.Server{
			Addr:              cfg.Server.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		})
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error {
			slog.Info("server starting", "addr", srv.Addr, "dev_mode", cfg.Server.DevMode)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server on %s: %w", srv.Addr, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gCtx.Done()
		slog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

func migrateCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	return database.Close()
}

func seedCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	seeder := seed.New(store.NewTournamentStore(database), c.Uint64("seed"))
	if c.Bool("clean") {
		if err := seeder.Clean(c.Context); err != nil {
			return err
		}
	}

	created, err := seeder.Run(c.Context, seed.DefaultPlans())
	if err != nil {
		return err
	}
	for _, t := range created {
		slog.Info("seeded tournament", "id", t.ID, "name", t.Name, "status", t.Status)
	}
	return nil
}

func tokenCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	raw, err := middleware.IssueToken(cfg.Auth.JWTSecret, middleware.Claims{
		Name:              c.String("name"),
		PreferredUsername: c.String("email"),
		NavIdent:          c.String("navident"),
		Groups:            c.StringSlice("group"),
	}, c.Duration("ttl"))
	if err != nil {
		return err
	}

	fmt.Fprintln(c.App.Writer, raw)
	return nil
}
