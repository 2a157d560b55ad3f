package presets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/smazurov/switchboard/internal/mixer"
	"github.com/smazurov/switchboard/internal/registry"
)

// Target is the part of the registry presets are applied to.
type Target interface {
	Create(ctx context.Context, cfg mixer.Config) error
	Get(name string) (mixer.Info, error)
	InputGet(mixerName, inputName string) (mixer.InputInfo, error)
	InputAdd(ctx context.Context, mixerName string, spec registry.InputSpec) error
	InputSetActive(ctx context.Context, mixerName, inputName string) error
	OutputGet(mixerName, outputName string) (mixer.OutputInfo, error)
	OutputAdd(ctx context.Context, mixerName string, spec registry.OutputSpec) error
}

// Result reports what an Apply created. Paths are mixer, mixer/input or
// mixer/output.
type Result struct {
	Mixers  []string
	Inputs  []string
	Outputs []string
	Errors  []error
}

// Err joins the per-node errors.
func (r Result) Err() error {
	return errors.Join(r.Errors...)
}

// Apply reconciles f into target. Only missing mixers, inputs and outputs
// are created; existing nodes are never modified or removed. A failure on
// one node does not stop the rest.
func Apply(ctx context.Context, target Target, f *File, logger *slog.Logger) Result {
	if logger == nil {
		logger = slog.Default()
	}
	var res Result

	for _, name := range f.Names() {
		if err := ctx.Err(); err != nil {
			res.Errors = append(res.Errors, err)
			return res
		}
		p := f.Mixers[name]
		cfg := p.Config(name)

		info, err := target.Get(name)
		switch {
		case err == nil:
			cfg = mixer.Config{Name: name, Video: info.Video, Audio: info.Audio}
		case mixer.IsCode(err, mixer.ErrCodeNotFound):
			if err := target.Create(ctx, cfg); err != nil {
				res.Errors = append(res.Errors, fmt.Errorf("mixer %s: %w", name, err))
				continue
			}
			res.Mixers = append(res.Mixers, name)
			logger.Info("Preset mixer created", "mixer", name)
		default:
			res.Errors = append(res.Errors, fmt.Errorf("mixer %s: %w", name, err))
			continue
		}

		for _, in := range p.Inputs {
			if _, err := target.InputGet(name, in.Name); err == nil {
				continue
			}
			spec, err := in.Spec(cfg)
			if err == nil {
				err = target.InputAdd(ctx, name, spec)
			}
			if err != nil {
				res.Errors = append(res.Errors, fmt.Errorf("mixer %s: %w", name, err))
				continue
			}
			res.Inputs = append(res.Inputs, name+"/"+in.Name)
			logger.Info("Preset input added", "mixer", name, "input", in.Name, "type", in.Type)
		}

		for _, out := range p.Outputs {
			if _, err := target.OutputGet(name, out.Name); err == nil {
				continue
			}
			spec, err := out.Spec(cfg)
			if err == nil {
				err = target.OutputAdd(ctx, name, spec)
			}
			if err != nil {
				res.Errors = append(res.Errors, fmt.Errorf("mixer %s: %w", name, err))
				continue
			}
			res.Outputs = append(res.Outputs, name+"/"+out.Name)
			logger.Info("Preset output added", "mixer", name, "output", out.Name, "type", out.Type)
		}

		// The declared active input is only applied while nothing is active.
		if p.Active == "" {
			continue
		}
		if info, err := target.Get(name); err == nil && info.Active == "" {
			if err := target.InputSetActive(ctx, name, p.Active); err != nil {
				res.Errors = append(res.Errors, fmt.Errorf("mixer %s: %w", name, err))
			}
		}
	}
	return res
}
