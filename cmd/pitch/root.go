package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ahrav/go-pitch/infrastructure/middleware"
	"github.com/ahrav/go-pitch/internal/application"
	"github.com/ahrav/go-pitch/internal/history"
	"github.com/ahrav/go-pitch/internal/telemetry"
)

const envPrefix = "PITCH"

// cli carries state shared by the subcommands. It is populated in the root
// command's PersistentPreRunE.
type cli struct {
	v      *viper.Viper
	cfg    *application.Config
	logger *slog.Logger
	getenv func(string) string

	initTelemetry func(context.Context, telemetry.Config) (telemetry.Shutdown, error)
}

func newRootCommand() *cobra.Command { return newRootCommandWithEnv(os.Getenv) }

// newRootCommandWithEnv builds the command tree with a custom lookup for
// provider API keys.
func newRootCommandWithEnv(getenv func(string) string) *cobra.Command {
	c := &cli{v: viper.New(), getenv: getenv, initTelemetry: telemetry.Init}

	root := &cobra.Command{
		Use:           "pitch",
		Short:         "Draft, score and select cold outreach emails",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.init(cmd.ErrOrStderr())
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "path to a YAML config file")
	flags.String("env-file", ".env", "dotenv file loaded before reading the environment")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.String("log-format", "", "log format: json or text")
	if err := c.v.BindPFlags(flags); err != nil {
		panic(err)
	}

	c.v.SetEnvPrefix(envPrefix)
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()

	root.AddCommand(newRunCommand(c), newServeCommand(c), newConfigCommand(c))
	return root
}

func (c *cli) init(stderr io.Writer) error {
	if err := godotenv.Load(c.v.GetString("env-file")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load env file: %w", err)
	}

	cfg, err := application.LoadConfig(c.v.GetString("config"))
	if err != nil {
		return err
	}
	if lvl := c.v.GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	if format := c.v.GetString("log-format"); format != "" {
		cfg.Log.Format = format
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	c.cfg = cfg
	c.logger = newLogger(stderr, cfg.Log)
	slog.SetDefault(c.logger)
	return nil
}

// app is everything a command needs to run the pipeline.
type app struct {
	orchestrator *application.Orchestrator
	registry     *prometheus.Registry
	shutdown     telemetry.Shutdown
}

// build wires the pipeline. The tracer provider is shut down again if any
// later step fails.
func (c *cli) build(ctx context.Context) (_ *app, err error) {
	shutdown, err := c.initTelemetry(ctx, telemetry.Config{
		Endpoint:    endpointIf(c.cfg.Telemetry.Enabled, c.cfg.Telemetry.Endpoint),
		Insecure:    c.cfg.Telemetry.Insecure,
		ServiceName: c.cfg.Telemetry.ServiceName,
		Version:     version,
		SampleRatio: c.cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, shutdown(context.WithoutCancel(ctx)))
		}
	}()

	reg := prometheus.NewRegistry()
	metrics := middleware.NewPrometheusMetrics(reg)

	clients, err := application.NewRegistry(c.cfg.LLM, metrics, nil, c.getenv)
	if err != nil {
		return nil, err
	}
	store, err := history.New(c.cfg.History.Size)
	if err != nil {
		return nil, err
	}

	orch, err := application.NewOrchestrator(c.cfg, application.Dependencies{
		Clients: clients,
		History: store,
		Metrics: metrics,
		Logger:  c.logger,
	})
	if err != nil {
		return nil, err
	}
	if err := orch.Validate(); err != nil {
		return nil, err
	}
	return &app{orchestrator: orch, registry: reg, shutdown: shutdown}, nil
}

func newLogger(w io.Writer, cfg application.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func endpointIf(enabled bool, endpoint string) string {
	if !enabled {
		return ""
	}
	return endpoint
}
