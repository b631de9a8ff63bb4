package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/uber/rd-bridge/src/rd-lib/codegen"
	"github.com/uber/rd-bridge/src/rd-lib/schema"
	"go.uber.org/zap"
)

// errStale is returned by check when the stubs differ from what the snapshot generates.
var errStale = errors.New("generated stubs are stale, rerun rdgen generate")

type target struct {
	schemaPath string
	role       string
	language   string
}

func (t *target) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&t.schemaPath, "schema", "", "schema snapshot (YAML)")
	cmd.Flags().StringVar(&t.role, "role", string(codegen.RoleAsis), "side to generate: asis or reversed")
	cmd.Flags().StringVar(&t.language, "lang", "go", "target language")
	_ = cmd.MarkFlagRequired("schema")
}

func (t *target) render() (*schema.Schema, []byte, error) {
	role, err := codegen.ParseRole(t.role)
	if err != nil {
		return nil, nil, err
	}
	emitter, err := codegen.Lookup(t.language)
	if err != nil {
		return nil, nil, err
	}
	s, err := schema.Load(t.schemaPath)
	if err != nil {
		return nil, nil, err
	}
	out, err := codegen.Generate(s, role, emitter)
	if err != nil {
		return nil, nil, fmt.Errorf("generating %s stubs for %s: %w", role, s.Name, err)
	}
	return s, out, nil
}

func newRootCmd(logger *zap.SugaredLogger) *cobra.Command {
	root := &cobra.Command{
		Use:           "rdgen",
		Short:         "Generate protocol stubs from schema snapshots",
		SilenceUsage: true,
	}
	root.AddCommand(newGenerateCmd(logger), newCheckCmd(), newWatchCmd(logger))
	return root
}

func newGenerateCmd(logger *zap.SugaredLogger) *cobra.Command {
	var (
		t   target
		out string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write the stubs of one role of a schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, src, err := t.render()
			if err != nil {
				return err
			}
			if out == "" {
				_, err := cmd.OutOrStdout().Write(src)
				return err
			}
			written, err := writeIfChanged(out, src)
			if err != nil {
				return err
			}
			if written {
				logger.Infow("stubs generated", "schema", s.Name, "version", s.Version, "role", t.role, "out", out)
			}
			return nil
		},
	}
	t.bind(cmd)
	cmd.Flags().StringVar(&out, "out", "", "output file; stdout when empty")
	return cmd
}

func newCheckCmd() *cobra.Command {
	var (
		t        target
		stubs    string
		previous string
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Fail when checked-in stubs drifted or the snapshot broke compatibility",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, src, err := t.render()
			if err != nil {
				return err
			}

			if previous != "" {
				old, err := schema.Load(previous)
				if err != nil {
					return err
				}
				if err := schema.CheckCompatible(old, s); err != nil {
					return fmt.Errorf("%s is not compatible with %s: %w", t.schemaPath, previous, err)
				}
			}

			existing, err := os.ReadFile(stubs)
			if err != nil {
				return fmt.Errorf("reading stubs: %w", err)
			}
			if diff := codegen.Check(existing, src); diff != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "--- %s\n+++ generated from %s\n%s", stubs, t.schemaPath, diff)
				return errStale
			}
			return nil
		},
	}
	t.bind(cmd)
	cmd.Flags().StringVar(&stubs, "stubs", "", "checked-in stub file to compare")
	cmd.Flags().StringVar(&previous, "previous", "", "previously shipped snapshot to check compatibility against")
	_ = cmd.MarkFlagRequired("stubs")
	return cmd
}

func writeIfChanged(path string, content []byte) (bool, error) {
	existing, err := os.ReadFile(path)
	if err == nil && bytes.Equal(existing, content) {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, err
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return false, fmt.Errorf("writing %s: %w", path, err)
	}
	return true, nil
}
