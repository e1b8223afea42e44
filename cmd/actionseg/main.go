package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/kikiluvv/actionseg/internal/config"
	"github.com/kikiluvv/actionseg/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "actionseg",
	Short: "actionseg - find the most active segments of a video",
	Long: "Scores motion between sampled frames with optical flow and selects " +
		"non-overlapping high-activity segments, optionally through a remote analyze service.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		logging.Init(logging.Options{Verbose: verbose, JSON: cfg.Log.JSON})

		ctx := config.WithConfig(cmd.Context(), cfg)
		cmd.SetContext(ctx)

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./actionseg.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(cacheCmd)
}
