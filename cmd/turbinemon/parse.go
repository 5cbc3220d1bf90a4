package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"codeberg.org/mutker/turbinemon/internal/errors"
	"codeberg.org/mutker/turbinemon/internal/telemetry"
	"github.com/spf13/cobra"
)

type parseSummary struct {
	Samples     int
	Noise       int
	ParseErrors int
}

func newParseCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "Check a telemetry capture offline",
		Long: `Parses a captured telemetry stream and prints every sample, followed by
counts of samples, diagnostic lines and malformed lines. Reads stdin when no
file is given or the file is "-".`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			errFactory := errors.New()

			var src io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return errFactory.Wrap(telemetry.ErrOpen, err)
				}
				defer f.Close()
				src = f
			}

			out := cmd.OutOrStdout()
			samples := out
			if quiet {
				samples = io.Discard
			}

			summary, err := parseCapture(cmd.Context(), src, samples)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "samples: %d, noise: %d, parse errors: %d\n",
				summary.Samples, summary.Noise, summary.ParseErrors)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only print the summary")

	return cmd
}

// parseCapture runs src through the telemetry reader until it ends, writing
// one line per sample or malformed line to w.
func parseCapture(ctx context.Context, src io.Reader, w io.Writer) (parseSummary, error) {
	reader := telemetry.NewReader(src, telemetry.DefaultConfig())
	defer reader.Close()

	var summary parseSummary
	for {
		frame, err := reader.Poll(ctx)
		switch {
		case err == nil:
		case telemetry.IsEndOfStream(err):
			return summary, nil
		case telemetry.IsParseError(err):
			summary.ParseErrors++
			fmt.Fprintf(w, "malformed: %q: %v\n", frame.Line, err)
			continue
		default:
			return summary, err
		}

		switch frame.Kind {
		case telemetry.FrameNoise:
			summary.Noise++
		case telemetry.FrameSample:
			summary.Samples++
			s := frame.Sample
			fmt.Fprintf(w, "p1=%g p2=%g t1=%g t2=%g\n", s.P1, s.P2, s.T1, s.T2)
		case telemetry.FrameIdle:
		}
	}
}
