package presets

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/pelletier/go-toml/v2"
	"github.com/smazurov/switchboard/internal/mixer"
)

// DefaultPath is used when no presets file is configured.
const DefaultPath = "presets.toml"

// Load reads and validates the presets file at path. A missing file yields
// an empty preset set.
func Load(path string) (*File, error) {
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &File{Version: 1, Mixers: map[string]MixerPreset{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read presets: %w", err)
	}
	return Parse(data)
}

// Parse decodes presets from TOML. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	f := &File{}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(f); err != nil {
		return nil, fmt.Errorf("failed to parse presets: %w", err)
	}
	if f.Mixers == nil {
		f.Mixers = map[string]MixerPreset{}
	}
	if f.Version == 0 {
		f.Version = 1
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Validate checks names and variants without building anything.
func (f *File) Validate() error {
	var errs []error
	for _, name := range f.Names() {
		p := f.Mixers[name]
		if err := mixer.ValidateName(mixer.KindMixer, name); err != nil {
			errs = append(errs, err)
			continue
		}

		seen := map[string]bool{}
		for _, in := range p.Inputs {
			if err := mixer.ValidateName(mixer.KindInput, in.Name); err != nil {
				errs = append(errs, fmt.Errorf("mixer %s: %w", name, err))
				continue
			}
			if seen[in.Name] || in.Name == mixer.BackgroundInput {
				errs = append(errs, fmt.Errorf("mixer %s: %w", name, mixer.ErrExists(mixer.KindInput, in.Name)))
			}
			seen[in.Name] = true
			if _, err := mixer.ParseInputKind(in.Type); err != nil {
				errs = append(errs, fmt.Errorf("mixer %s: input %s: %w", name, in.Name, err))
			}
		}
		if p.Active != "" && !seen[p.Active] {
			errs = append(errs, fmt.Errorf("mixer %s: active input %s is not declared", name, p.Active))
		}

		seen = map[string]bool{}
		for _, out := range p.Outputs {
			if err := mixer.ValidateName(mixer.KindOutput, out.Name); err != nil {
				errs = append(errs, fmt.Errorf("mixer %s: %w", name, err))
				continue
			}
			if seen[out.Name] {
				errs = append(errs, fmt.Errorf("mixer %s: %w", name, mixer.ErrExists(mixer.KindOutput, out.Name)))
			}
			seen[out.Name] = true
			if _, err := mixer.ParseOutputKind(out.Type); err != nil {
				errs = append(errs, fmt.Errorf("mixer %s: output %s: %w", name, out.Name, err))
			}
		}
	}
	return errors.Join(errs...)
}

// Names returns the mixer names in sorted order.
func (f *File) Names() []string {
	names := make([]string, 0, len(f.Mixers))
	for name := range f.Mixers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
