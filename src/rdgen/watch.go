package main

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newWatchCmd(logger *zap.SugaredLogger) *cobra.Command {
	var (
		t   target
		out string
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Regenerate stubs whenever the schema snapshot changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return err
			}
			defer watcher.Close()

			// Editors replace files on save, so watch the directory rather than the file.
			if err := watcher.Add(filepath.Dir(t.schemaPath)); err != nil {
				return err
			}
			want := filepath.Clean(t.schemaPath)

			regenerate := func() {
				s, src, err := t.render()
				if err != nil {
					logger.Warnw("regeneration failed", "schema", t.schemaPath, zap.Error(err))
					return
				}
				written, err := writeIfChanged(out, src)
				if err != nil {
					logger.Errorw("writing stubs", "out", out, zap.Error(err))
					return
				}
				if written {
					logger.Infow("stubs regenerated", "schema", s.Name, "version", s.Version, "out", out)
				}
			}
			regenerate()

			ctx := cmd.Context()
			for {
				select {
				case <-ctx.Done():
					return nil
				case event, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					if filepath.Clean(event.Name) != want || !event.Has(fsnotify.Write|fsnotify.Create) {
						continue
					}
					regenerate()
				case err, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					logger.Warnw("watch error", zap.Error(err))
				}
			}
		},
	}
	t.bind(cmd)
	cmd.Flags().StringVar(&out, "out", "", "output file")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}
