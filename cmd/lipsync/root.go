package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ieee0824/lipsync-go/internal/config"
	"github.com/ieee0824/lipsync-go/internal/logging"
)

// app carries the state shared by every subcommand once the root has
// loaded the configuration.
type app struct {
	configPath string
	logLevel   string

	cfg *config.Config
	log zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{log: zerolog.Nop()}
	root := &cobra.Command{
		Use:   "lipsync",
		Short: "Drive avatar mouth shapes from audio",
		Long: `lipsync - phoneme profiles and offline playback for the lip-sync engine.

Settings come from --config, ./lipsync.yaml when present, and LIPSYNC_*
environment variables, in that order of increasing priority.

Examples:
  # Build a profile from one take per phoneme
  lipsync calibrate A=a.wav I=i.wav U=u.wav E=e.wav O=o.wav rest=rest.wav > voice.yaml

  # Play a recording through the engine at 60 fps
  lipsync run --profile voice.yaml speech.wav

  # Show the analysis plan of a profile
  lipsync inspect voice.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ./lipsync.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error")

	root.AddCommand(newCalibrateCmd(a))
	root.AddCommand(newRunCmd(a))
	root.AddCommand(newInspectCmd(a))
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = logging.LogLevel(a.logLevel)
	}
	cfg.Log.Out = cmd.ErrOrStderr()
	log, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = log
	return nil
}
