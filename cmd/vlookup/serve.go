package main

import (
	"github.com/spf13/cobra"

	"github.com/frzifus/ouilookup/pkg/server"
)

func serveCmd(opts *options) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Answer vendor lookups over HTTP",
		Long: `Serve the compiled table over HTTP:

  GET /v1/vendors/{mac}   vendor as JSON, 404 if unknown, 400 if malformed
  GET /healthz            table size
  GET /metrics            Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.service()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			return server.New(svc, server.WithLogger(opts.logger())).ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}
