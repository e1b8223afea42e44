package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/kikiluvv/actionseg/internal/config"
	"github.com/kikiluvv/actionseg/internal/pipeline"
	"github.com/kikiluvv/actionseg/pkg/util"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var detectFlags struct {
	target        float64
	min           float64
	max           float64
	stride        int
	remote        bool
	local         bool
	chronological bool
	maxSegments   int
	jsonOut       bool
	noCache       bool
	noFallback    bool
}

var detectCmd = &cobra.Command{
	Use:   "detect [input video]",
	Short: "Detect high-action segments in a video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := *config.FromContext(cmd.Context())

		if !util.IsRegularFile(args[0]) {
			return fmt.Errorf("input %q is not a readable file", args[0])
		}
		if detectFlags.remote && detectFlags.local {
			return errors.New("--remote and --local are mutually exclusive")
		}

		if detectFlags.stride > 0 {
			cfg.Detection.SampleStride = detectFlags.stride
		}
		if detectFlags.remote {
			if cfg.Remote.APIKey == "" {
				return fmt.Errorf("--remote needs an API key (remote.api_key or %s)", config.EnvRemoteKey)
			}
			cfg.Remote.Enabled = true
		}

		pipe, err := pipeline.New(log.Logger, &cfg)
		if err != nil {
			return err
		}
		defer pipe.Close()

		maxSegments := cfg.Detection.MaxSegments
		if detectFlags.maxSegments > 0 {
			maxSegments = detectFlags.maxSegments
		}

		report, err := pipe.Analyze(cmd.Context(), args[0], pipeline.AnalyzeOptions{
			TargetDuration: detectFlags.target,
			MinDuration:    detectFlags.min,
			MaxDuration:    detectFlags.max,
			LocalOnly:      detectFlags.local,
			Chronological:  detectFlags.chronological,
			MaxSegments:    maxSegments,
			NoCache:        detectFlags.noCache,
			NoFallback:     detectFlags.noFallback,
		})
		if err != nil {
			return err
		}

		if detectFlags.jsonOut {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		return printReport(cmd.OutOrStdout(), report)
	},
}

func printReport(w io.Writer, r *pipeline.Report) error {
	fmt.Fprintf(w, "video:    %s (%s, %.2f fps)\n", r.InputPath, util.FormatSeconds(r.Video.Duration), r.Video.FPS)
	fmt.Fprintf(w, "run:      %s\n", r.RunID)
	fmt.Fprintf(w, "strategy: %s -> %s (%s)\n", r.Strategy, r.Source, r.Outcome)
	if r.CachedFrom != "" {
		fmt.Fprintf(w, "cached:   from run %s\n", r.CachedFrom)
	}
	if r.Fallback {
		fmt.Fprintln(w, "fallback: no qualifying window, using the opening of the video")
	}
	if r.Reason != "" {
		fmt.Fprintf(w, "reason:   %s\n", r.Reason)
	}
	if len(r.Segments) == 0 {
		_, err := fmt.Fprintln(w, "no segments")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSTART\tEND\tDURATION\tSCORE\tCONFIDENCE")
	for i, s := range r.Segments {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.2fs\t%.3f\t%.3f\n",
			i+1, util.FormatSeconds(s.Start), util.FormatSeconds(s.End), s.Duration, s.Score, s.Confidence)
	}
	return tw.Flush()
}

func init() {
	f := detectCmd.Flags()
	f.Float64Var(&detectFlags.target, "target", 0, "target segment duration in seconds (default from config)")
	f.Float64Var(&detectFlags.min, "min", 0, "minimum segment duration in seconds")
	f.Float64Var(&detectFlags.max, "max", 0, "maximum segment duration in seconds")
	f.IntVar(&detectFlags.stride, "stride", 0, "analyze every n-th frame")
	f.BoolVar(&detectFlags.remote, "remote", false, "try the remote analyze service first")
	f.BoolVar(&detectFlags.local, "local", false, "never call the remote analyze service")
	f.BoolVar(&detectFlags.chronological, "chronological", false, "order segments by start time instead of score")
	f.IntVar(&detectFlags.maxSegments, "max-segments", 0, "keep at most n segments")
	f.BoolVar(&detectFlags.jsonOut, "json", false, "print the full report as JSON")
	f.BoolVar(&detectFlags.noCache, "no-cache", false, "ignore and do not update the detection cache")
	f.BoolVar(&detectFlags.noFallback, "no-fallback", false, "return nothing instead of the opening of the video when no segment is found")
}
