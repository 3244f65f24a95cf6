package main

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/nhle/focusproof/internal/app"
	"github.com/nhle/focusproof/internal/commands"
	"github.com/nhle/focusproof/internal/logging"
	"github.com/nhle/focusproof/internal/model"
	"github.com/nhle/focusproof/internal/store"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	version = "dev"
	commit  = "HEAD"
)

func build() string {
	v, c := version, commit
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				if s.Key == "vcs.revision" {
					c = s.Value
				}
			}
		}
	}
	if len(c) > 7 {
		c = c[:7]
	}
	return fmt.Sprintf("%s (%s)", v, c)
}

func main() {
	ctx := context.Background()

	var (
		logCloser func()
		database  *store.SQLiteStore
	)

	flags := &commands.Flags{}

	root := &cli.Command{
		Name:      "focusproof",
		Usage:     "Time-boxed tasks with photo proof",
		UsageText: "focusproof [global options] command [command options]",
		Description: `focusproof runs a countdown for each task and asks an AI judge to check a
photo of the result when time is up. Verified work earns points.

Run 'focusproof' with no arguments to open the interactive tracker.`,
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error)",
				Sources:     cli.EnvVars("FOCUSPROOF_LOG_LEVEL"),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file",
				Sources:     cli.EnvVars("FOCUSPROOF_LOG_FILE"),
				Value:       model.DefaultLogPath(),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("FOCUSPROOF_CONFIG"),
				Value:       model.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "db",
				Usage:       "path to the task database (overrides data.db_path)",
				Sources:     cli.EnvVars("FOCUSPROOF_DB"),
				Destination: &flags.DBPath,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			// The TUI owns the terminal, so logs always go to a file.
			logger, closer, err := logging.New(flags.LogLevel, flags.LogFile)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			log.Logger = logger
			logCloser = closer

			cfg, err := model.LoadConfig(flags.ConfigPath)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			if flags.DBPath != "" {
				cfg.Data.DBPath = flags.DBPath
			}
			flags.Config = cfg

			database, err = store.NewSQLiteStore(cfg.Data.DBPath)
			if err != nil {
				return ctx, fmt.Errorf("open database: %w", err)
			}

			svc, err := app.NewServices(ctx, cfg, database, logger, os.Stdout,
				app.WithConfigPath(flags.ConfigPath),
			)
			if err != nil {
				return ctx, err
			}
			flags.Services = svc

			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if flags.Services != nil {
				flags.Services.Close()
			}

			if database != nil {
				if err := database.Close(); err != nil {
					log.Error().Err(err).Msg("failed to close database")
					return err
				}
			}

			if logCloser != nil {
				logCloser()
			}
			return nil
		},
	}

	tuiCmd := commands.NewTuiCmd(flags)

	root = commands.NewAddCmd(flags).Register(root)
	root = commands.NewListCmd(flags).Register(root)
	root = commands.NewStatsCmd(flags).Register(root)
	root = commands.NewAuthCmd(flags).Register(root)
	root = commands.NewInitCmd(flags).Register(root)

	root.Action = func(ctx context.Context, c *cli.Command) error {
		if c.Args().Len() > 0 {
			return fmt.Errorf("unknown command %q. Run 'focusproof --help' for usage", c.Args().First())
		}
		return tuiCmd.Run(ctx, c)
	}

	exitCode := 0
	if err := root.Run(ctx, os.Args); err != nil {
		fmt.Println(err.Error())
		exitCode = 1
	}

	os.Exit(exitCode)
}
