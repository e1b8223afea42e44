package main

import (
	"fmt"

	"github.com/kikiluvv/actionseg/internal/config"
	"github.com/kikiluvv/actionseg/internal/motion"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Config management commands",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with secrets redacted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		data, err := yaml.Marshal(cfg.Redacted())
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the effective configuration to a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.FromContext(cmd.Context()).Save(args[0]); err != nil {
			return err
		}
		log.Info().Str("path", args[0]).Msg("config written")
		return nil
	},
}

var configBackendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "List compiled-in optical flow backends",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range motion.FlowBackends() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configBackendsCmd)
}
