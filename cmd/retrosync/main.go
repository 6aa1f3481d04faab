package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"retrosync/internal/app"
	"retrosync/internal/config"
	"retrosync/internal/logging"
)

func main() {
	cliApp := &cli.App{
		Name:  "retrosync",
		Usage: "realtime retrospective session server",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "start the server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "path to a TOML config file",
					},
					&cli.IntFlag{
						Name:  "port",
						Usage: "HTTP listen port (overrides config)",
					},
					&cli.StringFlag{
						Name:  "db",
						Usage: "SQLite database path (overrides config)",
					},
					&cli.StringFlag{
						Name:  "log-level",
						Usage: "log level: trace, debug, info, warn, error",
					},
				},
				Action: serve,
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if c.IsSet("port") {
		cfg.HTTP.Port = c.Int("port")
	}
	if c.IsSet("db") {
		cfg.Database.Path = c.String("db")
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Pretty)

	application, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	application.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-application.ServeErr():
		if err != nil {
			logger.Error().Err(err).Msg("server failed")
			_ = application.Stop()
			return err
		}
	}

	return application.Stop()
}
