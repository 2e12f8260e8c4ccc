package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/chazu/semio/pkg/flatten"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// watchDebounce lets an editor finish a burst of writes before the kit is
// reloaded.
const watchDebounce = 200 * time.Millisecond

// watchKit calls reload once at start and again whenever path settles
// after a change. It returns when ctx is done. The parent directory is
// watched so that editors which replace the file are followed.
func watchKit(ctx context.Context, path string, debounce time.Duration, reload func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer w.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	reload()

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch: %w", err)
		case <-timer.C:
			reload()
		}
	}
}

func (c *cli) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch KIT [DESIGN]",
		Short: "Re-flatten a design every time its kit file changes",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) > 1 {
				name = args[1]
			}
			out := cmd.OutOrStdout()
			return watchKit(cmd.Context(), args[0], watchDebounce, func() {
				c.reflatten(out, args[0], name)
			})
		},
	}
}

// reflatten reloads the kit and prints a fresh flatten report. Failures are
// logged rather than returned so that the watch keeps running.
func (c *cli) reflatten(out io.Writer, path, name string) {
	k, err := c.loadKit(path)
	if err != nil {
		c.log.Warn("reload failed", zap.String("kit", path), zap.Error(err))
		return
	}
	var reports []flattenReport
	if name == "" && len(k.Designs) != 1 {
		if reports, err = flattenAll(k); err != nil {
			c.log.Warn("flatten failed", zap.Error(err))
			return
		}
	} else {
		d, err := pickDesign(k, name)
		if err != nil {
			c.log.Warn("no design", zap.String("kit", path), zap.Error(err))
			return
		}
		reports = []flattenReport{report(d, flatten.Flatten(d, k))}
	}
	for _, r := range reports {
		c.log.Info("flattened",
			zap.String("design", r.Design),
			zap.Int("placed", len(r.Pieces)),
			zap.Int("errors", len(r.Errors)))
	}
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	for _, r := range reports {
		if err := enc.Encode(r); err != nil {
			c.log.Warn("write failed", zap.Error(err))
			return
		}
	}
	_ = enc.Close()
}
