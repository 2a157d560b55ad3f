// Package logging configures slog for switchboard with a level per module.
//
// Every package asks for its logger by module name once and keeps it:
//
//	logger := logging.GetLogger("mixer").With("mixer", name)
//	logger.Info("Input added", "input", input, "zorder", z)
//
// Loggers handed out before [Initialize] are not stale: their level and
// outputs follow the configuration applied later. Module names in use are
// main, mixer, registry, engine, api, http, presets and nats.
//
// # Outputs
//
// Each record goes to every output that is present:
//
//   - stdout, as text or JSON, when it is a terminal, pipe, socket or file
//   - the systemd journal, with attributes as upper-case fields
//   - an in-memory ring buffer replayed by GET /api/logs/stream
//
// Journal fields make per-mixer filtering possible:
//
//	journalctl -t switchboard MODULE=registry
//	journalctl -t switchboard MIXER=studio -p warning
//
// # Configuration
//
//	[logging]
//	level = "info"       # global default
//	format = "text"      # text or json
//	buffer_size = 1000   # entries kept for replay
//	mixer = "debug"      # any other key sets that module's level
//	nats = "warn"
package logging
