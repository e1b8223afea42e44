package main

import (
	"github.com/kikiluvv/actionseg/internal/config"
	"github.com/kikiluvv/actionseg/internal/logging"
	"github.com/kikiluvv/actionseg/internal/pipeline"
	"github.com/kikiluvv/actionseg/internal/server"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analyze protocol over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := *config.FromContext(cmd.Context())
		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}
		// uploads land in fresh temp files and never hit the cache
		cfg.Cache.Enabled = false

		pipe, err := pipeline.New(log.Logger, &cfg)
		if err != nil {
			return err
		}
		defer pipe.Close()

		return server.New(logging.WithComponent("http"), pipe, cfg.Server).ListenAndServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}
