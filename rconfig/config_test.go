package rconfig_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gordian-engine/rivulet/internal/rtest"
	"github.com/gordian-engine/rivulet/rconfig"
	"github.com/gordian-engine/rivulet/rhub"
	"github.com/gordian-engine/rivulet/rmetrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

const sample = `
streams:
  ticks:
    buffer_size: 4
    overflow: drop_oldest
  commands: {}
`

func TestParse(t *testing.T) {
	t.Parallel()

	f, err := rconfig.Parse(strings.NewReader(sample))
	require.NoError(t, err)
	require.Equal(t, []string{"commands", "ticks"}, f.Names())

	cfg, err := f.Hub("ticks", nil)
	require.NoError(t, err)
	require.Equal(t, rhub.Config{
		Name:       "ticks",
		BufferSize: 4,
		Overflow:   rhub.DropOldest,
	}, cfg)

	cfg, err = f.Hub("commands", nil)
	require.NoError(t, err)
	require.Equal(t, rhub.Config{Name: "commands"}, cfg)
}

func TestParse_empty(t *testing.T) {
	t.Parallel()

	f, err := rconfig.Parse(strings.NewReader(""))
	require.NoError(t, err)
	require.Empty(t, f.Names())
}

func TestParse_invalid(t *testing.T) {
	t.Parallel()

	for name, tc := range map[string]struct {
		doc             string
		validationError bool
	}{
		"negative buffer": {
			doc:             "streams: {a: {buffer_size: -1}}",
			validationError: true,
		},
		"unknown overflow": {
			doc:             "streams: {a: {buffer_size: 1, overflow: drop_everything}}",
			validationError: true,
		},
		"drop policy without buffer": {
			doc: "streams: {a: {overflow: drop_latest}}",
		},
		"unknown field": {
			doc: "streams: {a: {size: 3}}",
		},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := rconfig.Parse(strings.NewReader(tc.doc))
			require.Error(t, err)

			var ve validator.ValidationErrors
			require.Equal(t, tc.validationError, errors.As(err, &ve))
		})
	}
}

func TestFile_unknownStream(t *testing.T) {
	t.Parallel()

	f, err := rconfig.Parse(strings.NewReader(sample))
	require.NoError(t, err)

	_, err = f.Hub("nope", nil)
	require.ErrorIs(t, err, rconfig.ErrUnknownStream)
}

func TestLoad_buildsWorkingHub(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "streams.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	f, err := rconfig.Load(path)
	require.NoError(t, err)

	m, err := rmetrics.New(prometheus.NewRegistry(), "test")
	require.NoError(t, err)

	cfg, err := f.Hub("ticks", m)
	require.NoError(t, err)
	require.Same(t, m, cfg.Metrics)

	h := rhub.New[int](rtest.NewLogger(t), cfg)
	s, err := h.Subscribe()
	require.NoError(t, err)
	defer s.Cancel()

	// Buffer of 4 with drop_oldest: six emits never block
	// and leave the last four values.
	for i := range 6 {
		require.NoError(t, h.Emit(context.Background(), i))
	}
	for want := 2; want < 6; want++ {
		v, err := s.Next(context.Background())
		require.NoError(t, err)
		require.Equal(t, want, v)
	}
}

func TestLoad_missingFile(t *testing.T) {
	t.Parallel()

	_, err := rconfig.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
