// Package rconfig loads named stream configurations from YAML.
//
// A configuration document looks like:
//
//	streams:
//	  ticks:
//	    buffer_size: 16
//	    overflow: drop_oldest
//	  commands: {}
//
// Each entry becomes an [rhub.Config] whose Name is the map key.
package rconfig

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/gordian-engine/rivulet/rhub"
	"github.com/gordian-engine/rivulet/rmetrics"
	"gopkg.in/yaml.v3"
)

// File is the top-level YAML document.
type File struct {
	Streams map[string]StreamConfig `yaml:"streams" validate:"dive,keys,required,max=128,endkeys"`
}

// StreamConfig is the YAML form of a single hub's settings.
type StreamConfig struct {
	BufferSize int    `yaml:"buffer_size" validate:"gte=0,lte=1048576"`
	Overflow   string `yaml:"overflow" validate:"omitempty,oneof=suspend drop_oldest drop_latest"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ErrUnknownStream is returned by [File.Hub] for a name with no entry.
var ErrUnknownStream = errors.New("unknown stream")

// Load reads and validates the configuration file at path.
func Load(path string) (File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to read stream config: %w", err)
	}
	return Parse(bytes.NewReader(b))
}

// Parse decodes and validates a configuration document from r.
// Unknown fields are rejected.
func Parse(r io.Reader) (File, error) {
	var f File

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			// An empty document configures no streams.
			return File{}, nil
		}
		return File{}, fmt.Errorf("failed to decode stream config: %w", err)
	}

	if err := f.Validate(); err != nil {
		return File{}, err
	}

	return f, nil
}

// Validate checks field constraints on every stream,
// and that each stream translates to a valid [rhub.Config].
func (f File) Validate() error {
	if err := validate.Struct(f); err != nil {
		return fmt.Errorf("invalid stream config: %w", err)
	}

	for _, name := range f.Names() {
		if _, err := f.Streams[name].hubConfig(name); err != nil {
			return fmt.Errorf("invalid stream config %q: %w", name, err)
		}
	}

	return nil
}

// Names returns the configured stream names in sorted order.
func (f File) Names() []string {
	names := make([]string, 0, len(f.Streams))
	for name := range f.Streams {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Hub returns the hub configuration for the named stream.
// The returned config shares m, which may be nil.
func (f File) Hub(name string, m *rmetrics.Metrics) (rhub.Config, error) {
	sc, ok := f.Streams[name]
	if !ok {
		return rhub.Config{}, fmt.Errorf("%w: %q", ErrUnknownStream, name)
	}

	cfg, err := sc.hubConfig(name)
	if err != nil {
		return rhub.Config{}, err
	}
	cfg.Metrics = m
	return cfg, nil
}

func (sc StreamConfig) hubConfig(name string) (rhub.Config, error) {
	o, err := rhub.ParseOverflow(sc.Overflow)
	if err != nil {
		return rhub.Config{}, err
	}

	cfg := rhub.Config{
		Name:       name,
		BufferSize: sc.BufferSize,
		Overflow:   o,
	}
	if err := cfg.Validate(); err != nil {
		return rhub.Config{}, err
	}
	return cfg, nil
}
