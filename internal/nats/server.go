package nats

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// RandomPort asks the embedded server to pick a free port; read the result
// from ClientURL after Start.
const RandomPort = server.RANDOM_PORT

// ServerOptions configures the embedded NATS server that carries mixer
// events and control requests when no external broker is configured.
type ServerOptions struct {
	Host string
	Port int // 0 means 4222, RandomPort picks a free one
	Name string
	// MaxPayload caps a single message. Control requests and event
	// payloads are small JSON documents.
	MaxPayload   int32
	ReadyTimeout time.Duration
	Logger       *slog.Logger
}

// Server wraps an embedded NATS server.
type Server struct {
	ns     *server.Server
	opts   ServerOptions
	logger *slog.Logger
}

// NewServer fills defaults into opts; nothing listens until Start.
func NewServer(opts ServerOptions) *Server {
	if opts.Host == "" {
		opts.Host = "127.0.0.1"
	}
	if opts.Port == 0 {
		opts.Port = 4222
	}
	if opts.Name == "" {
		opts.Name = "switchboard"
	}
	if opts.MaxPayload <= 0 {
		opts.MaxPayload = 256 * 1024
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = 5 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{opts: opts, logger: logger.With("component", "nats-server")}
}

// Start runs the server and blocks until it accepts connections.
func (s *Server) Start() error {
	ns, err := server.NewServer(&server.Options{
		Host:       s.opts.Host,
		Port:       s.opts.Port,
		ServerName: s.opts.Name,
		MaxPayload: s.opts.MaxPayload,
		NoSigs:     true,
	})
	if err != nil {
		return fmt.Errorf("create nats server: %w", err)
	}
	ns.SetLoggerV2(&serverLog{logger: s.logger}, false, false, false)

	go ns.Start()
	if !ns.ReadyForConnections(s.opts.ReadyTimeout) {
		ns.Shutdown()
		return fmt.Errorf("nats server not ready after %s", s.opts.ReadyTimeout)
	}
	s.ns = ns
	s.logger.Info("NATS server started", "url", ns.ClientURL(), "max_payload", s.opts.MaxPayload)
	return nil
}

// Stop shuts the server down and waits for client connections to close.
func (s *Server) Stop() {
	if s.ns == nil {
		return
	}
	s.logger.Info("Stopping NATS server", "clients", s.ns.NumClients())
	s.ns.Shutdown()
	s.ns.WaitForShutdown()
	s.ns = nil
}

// ClientURL is the address publishers and controllers connect to.
func (s *Server) ClientURL() string {
	if s.ns == nil {
		return fmt.Sprintf("nats://%s:%d", s.opts.Host, s.opts.Port)
	}
	return s.ns.ClientURL()
}

// IsRunning reports whether the server accepts connections.
func (s *Server) IsRunning() bool {
	return s.ns != nil && s.ns.Running()
}

// NumClients returns the number of connected clients.
func (s *Server) NumClients() int {
	if s.ns == nil {
		return 0
	}
	return s.ns.NumClients()
}

// serverLog routes nats-server's printf logging into slog.
type serverLog struct {
	logger *slog.Logger
}

func (l *serverLog) Noticef(format string, v ...any) { l.logger.Debug(fmt.Sprintf(format, v...)) }
func (l *serverLog) Warnf(format string, v ...any)   { l.logger.Warn(fmt.Sprintf(format, v...)) }
func (l *serverLog) Errorf(format string, v ...any)  { l.logger.Error(fmt.Sprintf(format, v...)) }
func (l *serverLog) Fatalf(format string, v ...any)  { l.logger.Error(fmt.Sprintf(format, v...)) }
func (l *serverLog) Debugf(format string, v ...any)  { l.logger.Debug(fmt.Sprintf(format, v...)) }
func (l *serverLog) Tracef(format string, v ...any)  { l.logger.Debug(fmt.Sprintf(format, v...)) }
