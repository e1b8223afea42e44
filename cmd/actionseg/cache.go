package main

import (
	"fmt"
	"time"

	"github.com/kikiluvv/actionseg/internal/config"
	"github.com/kikiluvv/actionseg/internal/store"
	"github.com/spf13/cobra"
)

var cacheOlderThan time.Duration

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Detection cache commands",
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete cached detections older than --older-than",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(s *store.Store) error {
			n, err := s.Cleanup(cmd.Context(), time.Now().Add(-cacheOlderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d entries\n", n)
			return nil
		})
	},
}

var cacheForgetCmd = &cobra.Command{
	Use:   "forget [video]",
	Short: "Delete every cached detection of a video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(s *store.Store) error {
			n, err := s.Forget(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d entries\n", n)
			return nil
		})
	},
}

func withStore(cmd *cobra.Command, fn func(*store.Store) error) error {
	cfg := config.FromContext(cmd.Context())
	s, err := store.Open(cfg.Cache.DBPath)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

func init() {
	cachePruneCmd.Flags().DurationVar(&cacheOlderThan, "older-than", 30*24*time.Hour, "age of entries to delete")
	cacheCmd.AddCommand(cachePruneCmd)
	cacheCmd.AddCommand(cacheForgetCmd)
}
