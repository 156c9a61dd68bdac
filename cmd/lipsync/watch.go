package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	lipsync "github.com/ieee0824/lipsync-go"
	"github.com/ieee0824/lipsync-go/profile"
)

// loadProfile decodes and validates the profile at path.
func loadProfile(path string) (*profile.Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return profile.Decode(f)
}

// watchProfile reinstalls the profile at path into e every time the file is
// written or replaced, until ctx is done. A profile that fails to load is
// logged and the engine keeps the previous one.
func watchProfile(ctx context.Context, path string, e *lipsync.Engine, log zerolog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Editors often replace the file, so watch its directory.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		target := filepath.Clean(path)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					reload(path, e, log)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("profile watcher error")
			}
		}
	}()
	return nil
}

func reload(path string, e *lipsync.Engine, log zerolog.Logger) {
	p, err := loadProfile(path)
	if err != nil {
		log.Warn().Err(err).Str("file", path).Msg("profile reload failed")
		return
	}
	if err := e.Install(p); err != nil {
		log.Warn().Err(err).Str("file", path).Msg("profile reload rejected")
		return
	}
	log.Info().Str("file", path).Str("profile", p.Name).Msg("profile reloaded")
}
