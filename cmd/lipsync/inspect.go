package main

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/ieee0824/lipsync-go/analysis"
)

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect PROFILE.yaml",
		Short: "Build the analysis context of a profile and print its layout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProfile(args[0])
			if err != nil {
				return err
			}
			ctx, err := analysis.Build(p, a.cfg.Engine.AnalysisConfig())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			plan := ctx.Plan
			fmt.Fprintf(out, "profile   %s\n", p.Name)
			fmt.Fprintf(out, "method    %s\n", ctx.Method)
			fmt.Fprintf(out, "input     %d Hz, %d samples (%.1f ms)\n",
				plan.Config.InputSampleRate, plan.Config.SampleCount,
				1000*float64(plan.Config.SampleCount)/float64(plan.Config.InputSampleRate))
			fmt.Fprintf(out, "analysis  %d Hz, frame %d, fft %d (%d bins)\n",
				plan.Config.TargetSampleRate, plan.FrameLen, plan.FFT.Size, plan.FFT.Bins())
			fmt.Fprintf(out, "mel       %d bands, %d weights\n", plan.Mel.Bands, len(plan.Mel.Weights))
			fmt.Fprintf(out, "mfcc      %d coefficients\n", ctx.Order)
			fmt.Fprintf(out, "fir       %d taps\n", len(plan.Taps))
			fmt.Fprintln(out, "phonemes")
			for i := 0; i < ctx.Phonemes; i++ {
				mark := ""
				if i == ctx.RestIndex {
					mark = " (rest)"
				}
				fmt.Fprintf(out, "  %2d %-8s |t|=%.3f%s\n", i, ctx.Name(i), ctx.Norms[i], mark)
			}
			if ctx.RestIndex < 0 {
				fmt.Fprintf(out, "no rest phoneme %q\n", p.RestName())
			}
			if d, i, j := closestPair(ctx); i >= 0 {
				fmt.Fprintf(out, "closest   %s/%s at %.3f\n", ctx.Name(i), ctx.Name(j), d)
			}
			return nil
		},
	}
}

// closestPair returns the smallest RMS distance between two standardized
// templates. Pairs that close are the ones the engine confuses first.
func closestPair(ctx *analysis.Context) (float64, int, int) {
	best, bi, bj := math.Inf(1), -1, -1
	for i := 0; i < ctx.Phonemes; i++ {
		ti := ctx.Template(i)
		for j := i + 1; j < ctx.Phonemes; j++ {
			tj := ctx.Template(j)
			var sum float64
			for k := range ti {
				d := ti[k] - tj[k]
				sum += d * d
			}
			if d := math.Sqrt(sum / float64(ctx.Order)); d < best {
				best, bi, bj = d, i, j
			}
		}
	}
	return best, bi, bj
}
