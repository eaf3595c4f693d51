package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tordrt/schemadoc"
	"github.com/tordrt/schemadoc/internal/server"
)

func newServeCmd() *cobra.Command {
	var noStore bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the parse, diff and DDL pipeline over HTTP",
		Long: `Serve the pipeline as a JSON API under /v1. Unless --no-store is given the
version store is opened and the project routes are enabled.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFrom(cmd)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var svc *schemadoc.Service
			if !noStore {
				s, closeFn, err := a.openService(ctx)
				if err != nil {
					return err
				}
				defer closeFn()
				svc = s
			}

			return server.New(server.Config{
				Addr:    a.cfg.Server.Addr,
				Service: svc,
				Logger:  a.logger,
			}).Serve(ctx)
		},
	}

	cmd.Flags().String("addr", "", "Listen address (default: :8080)")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "Serve only the stateless routes")
	return cmd
}
