package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ieee0824/lipsync-go/analysis"
	"github.com/ieee0824/lipsync-go/audio"
	"github.com/ieee0824/lipsync-go/internal/logging"
	"github.com/ieee0824/lipsync-go/profile"
)

type calibrateOptions struct {
	name     string
	method   string
	rest     string
	hop      int
	speed    []float64
	output   string
	evaluate bool
}

func newCalibrateCmd(a *app) *cobra.Command {
	var opts calibrateOptions
	cmd := &cobra.Command{
		Use:   "calibrate PHONEME=FILE.wav...",
		Short: "Build a phoneme profile from WAV takes",
		Long: `Analyze one or more WAV takes per phoneme and write the resulting profile
as YAML. Takes at another sample rate are resampled to the engine input rate.
When no take is labelled with the rest phoneme, its template is the mean of
all frames.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.calibrate(cmd, opts, args)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.name, "name", "profile", "profile name")
	f.StringVar(&opts.method, "method", "l2", "scoring method: l1, l2 or cosine")
	f.StringVar(&opts.rest, "rest", profile.DefaultRest, "name of the rest phoneme")
	f.IntVar(&opts.hop, "hop", 0, "window advance in samples (default half a window)")
	f.Float64SliceVar(&opts.speed, "speed", nil, "extra speed-perturbed copies, e.g. 0.9,1.1")
	f.StringVarP(&opts.output, "output", "o", "", "write the profile here instead of stdout")
	f.BoolVar(&opts.evaluate, "evaluate", false, "score the calibration frames and print a confusion table")
	return cmd
}

// splitTake parses a PHONEME=FILE argument.
func splitTake(arg string) (name, path string, err error) {
	name, path, ok := strings.Cut(arg, "=")
	if !ok || name == "" || path == "" {
		return "", "", fmt.Errorf("take %q: want PHONEME=FILE.wav", arg)
	}
	return name, path, nil
}

// readMono returns the first channel of a WAV file and its sample rate.
func readMono(path string) ([]float64, int, error) {
	samples, hdr, err := audio.ReadWAVFile(path)
	if err != nil {
		return nil, 0, err
	}
	return audio.Channel(samples, hdr.NumChannels, 0), hdr.SampleRate, nil
}

func (a *app) calibrate(cmd *cobra.Command, opts calibrateOptions, args []string) error {
	method, err := profile.ParseMethod(opts.method)
	if err != nil {
		return err
	}
	cfg := profile.DefaultCalibratorConfig()
	cfg.Feature = a.cfg.Engine.AnalysisConfig().Feature
	cfg.Method = method
	cfg.Name = opts.name
	cfg.Rest = opts.rest
	cfg.Hop = opts.hop
	cfg.SilenceRMS = a.cfg.Engine.SilenceRMS
	cfg.SpeedFactors = opts.speed

	cal, err := profile.NewCalibrator(cfg, logging.Component(a.log, "calibrator"))
	if err != nil {
		return err
	}
	for _, arg := range args {
		name, path, err := splitTake(arg)
		if err != nil {
			return err
		}
		pcm, rate, err := readMono(path)
		if err != nil {
			return fmt.Errorf("take %s: %w", name, err)
		}
		n, err := cal.AddSamples(name, pcm, rate)
		if err != nil {
			return err
		}
		a.log.Info().Str("phoneme", name).Str("file", path).Int("frames", n).Msg("take added")
	}

	p, err := cal.Profile()
	if err != nil {
		return err
	}

	if opts.evaluate {
		if err := a.evaluate(cmd.ErrOrStderr(), cal, p); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if opts.output != "" {
		f, err := os.Create(opts.output)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	if err := profile.Encode(out, p); err != nil {
		return err
	}
	a.log.Info().Str("profile", p.Name).Int("phonemes", len(p.Phonemes)).Msg("profile written")
	return nil
}

// evaluate classifies every calibration frame against the finished profile
// and prints how often each phoneme won per labelled phoneme.
func (a *app) evaluate(w io.Writer, cal *profile.Calibrator, p *profile.Profile) error {
	ctx, err := analysis.Build(p, a.cfg.Engine.AnalysisConfig())
	if err != nil {
		return err
	}

	var frames []float64
	var truth []int
	z := make([]float64, ctx.Order)
	for _, name := range cal.Names() {
		idx, ok := ctx.Index(name)
		if !ok {
			continue
		}
		for _, f := range cal.Frames(name) {
			ctx.Standardize(f, z)
			frames = append(frames, z...)
			truth = append(truth, idx)
		}
	}
	best, _ := analysis.ScoreBatch(ctx, frames, len(truth))
	writeConfusion(w, ctx, analysis.Confusion(ctx, truth, best))
	return nil
}

func writeConfusion(w io.Writer, ctx *analysis.Context, m [][]int) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprint(tw, "\t")
	for i := 0; i < ctx.Phonemes; i++ {
		fmt.Fprintf(tw, "%s\t", ctx.Name(i))
	}
	fmt.Fprintln(tw, "acc\t")

	correct, total := 0, 0
	for i, row := range m {
		fmt.Fprintf(tw, "%s\t", ctx.Name(i))
		n := 0
		for _, c := range row {
			fmt.Fprintf(tw, "%d\t", c)
			n += c
		}
		if n > 0 {
			fmt.Fprintf(tw, "%.1f%%\t\n", 100*float64(row[i])/float64(n))
		} else {
			fmt.Fprintln(tw, "-\t")
		}
		correct += row[i]
		total += n
	}
	tw.Flush()
	if total > 0 {
		fmt.Fprintf(w, "overall %d/%d (%.1f%%)\n", correct, total, 100*float64(correct)/float64(total))
	}
}
