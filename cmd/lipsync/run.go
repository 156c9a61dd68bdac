package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	lipsync "github.com/ieee0824/lipsync-go"
	"github.com/ieee0824/lipsync-go/audio"
	"github.com/ieee0824/lipsync-go/blend"
	"github.com/ieee0824/lipsync-go/profile"
)

type runOptions struct {
	profile  string
	fps      float64
	watch    bool
	realtime bool
	every    int
}

func newRunCmd(a *app) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run FILE.wav",
		Short: "Play a WAV file through a speaker and print its mouth shapes",
		Long: `Feed a recording to one speaker in frame-sized chunks, tick it once per
frame and print the phoneme, volume and slot weights of every frame.

Slots come from the bindings section of the config. Without bindings every
phoneme of the profile gets its own slot, in profile order.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, opts, args[0])
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.profile, "profile", "p", "", "profile YAML (default from config)")
	f.Float64Var(&opts.fps, "fps", 0, "frames per second (default from config)")
	f.BoolVarP(&opts.watch, "watch", "w", false, "reload the profile when the file changes")
	f.BoolVar(&opts.realtime, "realtime", false, "pace frames at the frame rate")
	f.IntVar(&opts.every, "every", 1, "print every Nth frame")
	return cmd
}

func (a *app) run(cmd *cobra.Command, opts runOptions, wavPath string) error {
	if opts.profile == "" {
		opts.profile = a.cfg.Profile
	}
	if opts.profile == "" {
		return errors.New("no profile: pass --profile or set profile in the config")
	}
	if opts.fps <= 0 {
		opts.fps = a.cfg.FPS
	}
	if opts.every < 1 {
		opts.every = 1
	}

	p, err := loadProfile(opts.profile)
	if err != nil {
		return fmt.Errorf("profile %s: %w", opts.profile, err)
	}
	pcm, rate, err := readMono(wavPath)
	if err != nil {
		return err
	}
	engCfg := a.cfg.Engine
	if rate != engCfg.InputSampleRate {
		a.log.Debug().Int("from", rate).Int("to", engCfg.InputSampleRate).Msg("resampling input")
		if pcm, err = audio.Resample(pcm, rate, engCfg.InputSampleRate, 1); err != nil {
			return err
		}
	}

	engine := lipsync.NewEngine(lipsync.WithLogger(a.log), lipsync.WithConfig(engCfg))
	defer engine.Close()
	if err := engine.Install(p); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	if opts.watch {
		if err := watchProfile(ctx, opts.profile, engine, a.log); err != nil {
			return fmt.Errorf("watch %s: %w", opts.profile, err)
		}
	}

	speaker, err := engine.NewSpeaker(nil)
	if err != nil {
		return err
	}
	defer speaker.Close()
	speaker.Bind(bindings(a.cfg.Bindings, p))

	return a.play(ctx, cmd.OutOrStdout(), engine, speaker, audio.Float32s(pcm), engCfg.InputSampleRate, opts)
}

// bindings returns the configured slot table, or one slot per phoneme.
func bindings(configured []blend.Entry, p *profile.Profile) []blend.Entry {
	if len(configured) > 0 {
		return configured
	}
	entries := make([]blend.Entry, len(p.Phonemes))
	for i, t := range p.Phonemes {
		entries[i] = blend.Entry{Slot: i, Phoneme: t.Name}
	}
	return entries
}

func (a *app) play(ctx context.Context, w io.Writer, e *lipsync.Engine, s *lipsync.Speaker,
	pcm []float32, rate int, opts runOptions) error {
	hop := max(1, int(math.Round(float64(rate)/opts.fps)))
	dt := 1 / opts.fps
	st := newStyles()

	var ticker *time.Ticker
	if opts.realtime {
		ticker = time.NewTicker(time.Duration(dt * float64(time.Second)))
		defer ticker.Stop()
	}

	frame := 0
	for off := 0; off < len(pcm); off += hop {
		if ticker != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		} else if ctx.Err() != nil {
			return nil
		}

		s.Feed(pcm[off:min(off+hop, len(pcm))], 1)
		s.Tick(dt)
		s.Wait()

		if frame%opts.every == 0 {
			rest := -1
			if c := e.Context(); c != nil {
				rest = c.RestIndex
			}
			line := st.frameLine(float64(off)/float64(rate), s.Readout(), rest, s.Weights())
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
		frame++
	}
	a.log.Debug().Int("frames", frame).Msg("playback finished")
	return nil
}
