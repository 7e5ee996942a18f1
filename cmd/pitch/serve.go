package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-pitch/internal/server"
)

func newServeCommand(c *cli) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the run API, health checks and metrics over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				c.cfg.Server.Addr = addr
			}

			ctx := cmd.Context()
			a, err := c.build(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.shutdown(context.WithoutCancel(ctx)) }()

			srv := server.New(a.orchestrator, a.registry, c.logger, server.Options{
				Addr:            c.cfg.Server.Addr,
				ReadTimeout:     c.cfg.Server.ReadTimeout,
				ShutdownTimeout: c.cfg.Server.ShutdownTimeout,
				Debug:           c.cfg.Log.Level == "debug",
			})
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides server.addr")
	return cmd
}
