package registry

import (
	"context"

	"github.com/smazurov/switchboard/internal/events"
	"github.com/smazurov/switchboard/internal/logging"
	"github.com/smazurov/switchboard/internal/metrics"
	"github.com/smazurov/switchboard/internal/mixer"
)

// InputAdd constructs an input from spec and links it into the mixer.
func (r *Registry) InputAdd(ctx context.Context, mixerName string, spec InputSpec) (err error) {
	defer func() { metrics.ObserveOperation(OpInputAdd, err) }()

	if err := ctx.Err(); err != nil {
		return err
	}
	m, err := r.mixer(mixerName)
	if err != nil {
		return err
	}
	in, err := mixer.NewInput(r.eng, spec.Kind, spec.Config, spec.Location,
		mixer.WithRecordDir(r.recordDir),
		mixer.WithInputLogger(logging.GetLogger("mixer").With("mixer", mixerName, "input", spec.Config.Name)),
	)
	if err != nil {
		return err
	}
	if err := m.InputAdd(in); err != nil {
		return err
	}

	metrics.SetMixerInputs(mixerName, m.InputCount())
	r.logger.Debug("Input added", "mixer", mixerName, "input", in.Name(), "type", in.Kind())
	info, _ := m.InputGet(in.Name())
	r.publish(events.InputAddedEvent{
		ID:        events.NewID(),
		MixerName: mixerName,
		Input:     info,
		Timestamp: events.Now(),
	})
	return nil
}

// InputRemove unlinks and drops an input.
func (r *Registry) InputRemove(ctx context.Context, mixerName, inputName string) (err error) {
	defer func() { metrics.ObserveOperation(OpInputRemove, err) }()

	if err := ctx.Err(); err != nil {
		return err
	}
	m, err := r.mixer(mixerName)
	if err != nil {
		return err
	}
	if err := m.InputRemove(inputName); err != nil {
		return err
	}

	metrics.SetMixerInputs(mixerName, m.InputCount())
	r.logger.Debug("Input removed", "mixer", mixerName, "input", inputName)
	r.publish(events.InputRemovedEvent{
		ID:        events.NewID(),
		MixerName: mixerName,
		InputName: inputName,
		Timestamp: events.Now(),
	})
	return nil
}

// InputList returns every input of a mixer sorted by name.
func (r *Registry) InputList(mixerName string) ([]mixer.InputInfo, error) {
	m, err := r.mixer(mixerName)
	if err != nil {
		return nil, err
	}
	return m.InputList(), nil
}

// InputGet returns a snapshot of one input.
func (r *Registry) InputGet(mixerName, inputName string) (mixer.InputInfo, error) {
	m, err := r.mixer(mixerName)
	if err != nil {
		return mixer.InputInfo{}, err
	}
	return m.InputGet(inputName)
}

// InputUpdate applies placement and gain changes to an input.
func (r *Registry) InputUpdate(ctx context.Context, mixerName, inputName string, u mixer.InputUpdate) (err error) {
	defer func() { metrics.ObserveOperation(OpInputUpdate, err) }()

	if err := ctx.Err(); err != nil {
		return err
	}
	m, err := r.mixer(mixerName)
	if err != nil {
		return err
	}
	if err := m.InputUpdate(inputName, u); err != nil {
		return err
	}

	info, _ := m.InputGet(inputName)
	r.publish(events.InputUpdatedEvent{
		ID:        events.NewID(),
		MixerName: mixerName,
		Input:     info,
		Timestamp: events.Now(),
	})
	return nil
}

// InputSetActive promotes an input over all others. A PARTIAL_UPDATE error
// still publishes the switch, flagged as partial, when the promotion itself
// went through.
func (r *Registry) InputSetActive(ctx context.Context, mixerName, inputName string) (err error) {
	defer func() { metrics.ObserveOperation(OpInputSetActive, err) }()

	if err := ctx.Err(); err != nil {
		return err
	}
	m, err := r.mixer(mixerName)
	if err != nil {
		return err
	}
	err = m.InputSetActive(inputName)
	partial := mixer.IsCode(err, mixer.ErrCodePartialUpdate)
	if err != nil && !partial {
		return err
	}
	if m.Active() != inputName {
		return err
	}

	metrics.IncActiveSwitches(mixerName)
	r.logger.Info("Active input changed", "mixer", mixerName, "input", inputName, "partial", partial)
	r.publish(events.ActiveInputChangedEvent{
		ID:        events.NewID(),
		MixerName: mixerName,
		InputName: inputName,
		Partial:   partial,
		Timestamp: events.Now(),
	})
	return err
}

// OutputAdd constructs an output from spec and links it into the mixer.
func (r *Registry) OutputAdd(ctx context.Context, mixerName string, spec OutputSpec) (err error) {
	defer func() { metrics.ObserveOperation(OpOutputAdd, err) }()

	if err := ctx.Err(); err != nil {
		return err
	}
	m, err := r.mixer(mixerName)
	if err != nil {
		return err
	}
	out, err := mixer.NewOutput(r.eng, spec.Kind, spec.Config, spec.Location)
	if err != nil {
		return err
	}
	if err := m.OutputAdd(out); err != nil {
		return err
	}

	metrics.SetMixerOutputs(mixerName, m.OutputCount())
	r.logger.Debug("Output added", "mixer", mixerName, "output", out.Name(), "type", out.Kind())
	r.publish(events.OutputAddedEvent{
		ID:        events.NewID(),
		MixerName: mixerName,
		Output:    out.Info(),
		Timestamp: events.Now(),
	})
	return nil
}

// OutputRemove unlinks and drops an output.
func (r *Registry) OutputRemove(ctx context.Context, mixerName, outputName string) (err error) {
	defer func() { metrics.ObserveOperation(OpOutputRemove, err) }()

	if err := ctx.Err(); err != nil {
		return err
	}
	m, err := r.mixer(mixerName)
	if err != nil {
		return err
	}
	if err := m.OutputRemove(outputName); err != nil {
		return err
	}

	metrics.SetMixerOutputs(mixerName, m.OutputCount())
	r.logger.Debug("Output removed", "mixer", mixerName, "output", outputName)
	r.publish(events.OutputRemovedEvent{
		ID:         events.NewID(),
		MixerName:  mixerName,
		OutputName: outputName,
		Timestamp:  events.Now(),
	})
	return nil
}

// OutputList returns every output of a mixer sorted by name.
func (r *Registry) OutputList(mixerName string) ([]mixer.OutputInfo, error) {
	m, err := r.mixer(mixerName)
	if err != nil {
		return nil, err
	}
	return m.OutputList(), nil
}

// OutputGet returns a snapshot of one output.
func (r *Registry) OutputGet(mixerName, outputName string) (mixer.OutputInfo, error) {
	m, err := r.mixer(mixerName)
	if err != nil {
		return mixer.OutputInfo{}, err
	}
	return m.OutputGet(outputName)
}
