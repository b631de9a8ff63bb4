package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const _schemaV1 = `name: Greeter
version: 1
root:
  id: 1
  name: Greeter
  requests:
    - {id: 1, name: Greet, request: string, response: string}
`

const _schemaV2 = `name: Greeter
version: 2
root:
  id: 1
  name: Greeter
  requests:
    - {id: 1, name: Greet, request: string, response: string}
    - {id: 2, name: Wave, request: void, response: bool}
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(zap.NewNop().Sugar())
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestGenerate(t *testing.T) {
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "greeter.yaml")
	writeFile(t, schemaPath, _schemaV1)

	t.Run("stdout", func(t *testing.T) {
		out, err := run(t, "generate", "--schema", schemaPath, "--role", "reversed")
		require.NoError(t, err)
		assert.Contains(t, out, "package greeterclient")
		assert.Contains(t, out, "func (n *Greeter) Greet(ctx context.Context, req string) (string, error)")
	})

	t.Run("file", func(t *testing.T) {
		stubs := filepath.Join(dir, "greeter", "greeter.go")
		_, err := run(t, "generate", "--schema", schemaPath, "--out", stubs)
		require.NoError(t, err)
		data, err := os.ReadFile(stubs)
		require.NoError(t, err)
		assert.Contains(t, string(data), "package greeter\n")
	})

	t.Run("bad role", func(t *testing.T) {
		_, err := run(t, "generate", "--schema", schemaPath, "--role", "both")
		assert.ErrorContains(t, err, "unknown role")
	})

	t.Run("unknown language", func(t *testing.T) {
		_, err := run(t, "generate", "--schema", schemaPath, "--lang", "cobol")
		assert.ErrorContains(t, err, "no emitter")
	})

	t.Run("missing schema flag", func(t *testing.T) {
		_, err := run(t, "generate")
		assert.Error(t, err)
	})
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	v1 := filepath.Join(dir, "v1.yaml")
	v2 := filepath.Join(dir, "v2.yaml")
	stubs := filepath.Join(dir, "greeter.go")
	writeFile(t, v1, _schemaV1)
	writeFile(t, v2, _schemaV2)

	_, err := run(t, "generate", "--schema", v1, "--out", stubs)
	require.NoError(t, err)

	t.Run("up to date", func(t *testing.T) {
		out, err := run(t, "check", "--schema", v1, "--stubs", stubs)
		require.NoError(t, err)
		assert.Empty(t, out)
	})

	t.Run("drift", func(t *testing.T) {
		out, err := run(t, "check", "--schema", v2, "--stubs", stubs)
		assert.ErrorIs(t, err, errStale)
		assert.Contains(t, out, "+// Code generated by rdgen from Greeter version 2 (asis). DO NOT EDIT.")
		assert.Contains(t, out, "-// Code generated by rdgen from Greeter version 1 (asis). DO NOT EDIT.")
	})

	t.Run("compatible evolution", func(t *testing.T) {
		_, err := run(t, "generate", "--schema", v2, "--out", stubs)
		require.NoError(t, err)
		_, err = run(t, "check", "--schema", v2, "--stubs", stubs, "--previous", v1)
		assert.NoError(t, err)
	})

	t.Run("breaking evolution", func(t *testing.T) {
		broken := filepath.Join(dir, "broken.yaml")
		writeFile(t, broken, strings.Replace(_schemaV2, "response: bool", "response: string", 1))
		_, err := run(t, "check", "--schema", broken, "--stubs", stubs, "--previous", v2)
		assert.ErrorContains(t, err, "is not compatible")
	})
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "greeter.yaml")
	stubs := filepath.Join(dir, "greeter.go")
	writeFile(t, schemaPath, _schemaV1)

	ctx, cancel := context.WithCancel(context.Background())
	cmd := newRootCmd(zap.NewNop().Sugar())
	cmd.SetArgs([]string{"watch", "--schema", schemaPath, "--out", stubs})
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	contains := func(s string) func() bool {
		return func() bool {
			data, err := os.ReadFile(stubs)
			return err == nil && strings.Contains(string(data), s)
		}
	}
	require.Eventually(t, contains("Greeter version 1"), 5*time.Second, 10*time.Millisecond)

	writeFile(t, schemaPath, _schemaV2)
	require.Eventually(t, contains("Greeter version 2"), 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
