package presets

import (
	"context"
	"log/slog"

	"github.com/smazurov/switchboard/internal/config"
)

// Watcher reapplies the presets file whenever it changes.
type Watcher struct {
	watcher *config.Watcher[*File]
	target  Target
	logger  *slog.Logger
	applied chan Result
}

// NewWatcher creates a watcher applying path to target on every change.
func NewWatcher(path string, target Target, logger *slog.Logger, opts ...config.WatcherOption[*File]) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Watcher{
		target:  target,
		logger:  logger,
		applied: make(chan Result, 4),
	}
	opts = append([]config.WatcherOption[*File]{
		config.WithErrorHandler[*File](func(err error) {
			logger.Warn("Presets reload failed, keeping current mixers", "error", err)
		}),
	}, opts...)
	w.watcher = config.NewConfigWatcher(path, Load, logger, opts...)
	w.watcher.OnReload(w.apply)
	return w
}

// Applied returns a channel receiving the result of every reload. Results
// are dropped while the channel is full.
func (w *Watcher) Applied() <-chan Result {
	return w.applied
}

func (w *Watcher) apply(f *File) {
	res := Apply(context.Background(), w.target, f, w.logger)
	if err := res.Err(); err != nil {
		w.logger.Warn("Presets partially applied", "error", err)
	} else {
		w.logger.Info("Presets applied", "mixers", len(res.Mixers), "inputs", len(res.Inputs), "outputs", len(res.Outputs))
	}
	select {
	case w.applied <- res:
	default:
	}
}

// Start begins watching the presets file.
func (w *Watcher) Start() error {
	return w.watcher.Start()
}

// Stop ends watching.
func (w *Watcher) Stop() error {
	return w.watcher.Stop()
}
