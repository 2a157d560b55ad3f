package nats

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/smazurov/switchboard/internal/mixer"
)

// DefaultControlTimeout bounds a single control command.
const DefaultControlTimeout = 15 * time.Second

// Switcher applies control commands. *registry.Registry implements it.
type Switcher interface {
	InputSetActive(ctx context.Context, mixerName, inputName string) error
	InputRemove(ctx context.Context, mixerName, inputName string) error
}

// Controller subscribes to control subjects and applies them to mixers.
type Controller struct {
	url      string
	switcher Switcher
	timeout  time.Duration
	conn     *nats.Conn
	sub      *nats.Subscription
	logger   *slog.Logger
	mu       sync.Mutex
}

// NewController creates a controller applying commands through switcher.
func NewController(url string, switcher Switcher, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}

	return &Controller{
		url:      url,
		switcher: switcher,
		timeout:  DefaultControlTimeout,
		logger:   logger.With("component", "nats-controller"),
	}
}

// Start connects to NATS and subscribes to switchboard.control.*.*.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := nats.Connect(c.url,
		nats.Name("switchboard-controller"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				c.logger.Warn("NATS controller disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			c.logger.Info("NATS controller reconnected")
		}),
	)
	if err != nil {
		return err
	}

	sub, err := conn.Subscribe(SubjectControlPrefix+".*.*", c.handle)
	if err != nil {
		conn.Close()
		return err
	}

	c.conn = conn
	c.sub = sub
	c.logger.Info("NATS controller subscribed", "subject", SubjectControlPrefix+".>")
	return nil
}

// handle applies one control message and answers requests.
func (c *Controller) handle(msg *nats.Msg) {
	reply := c.apply(msg)
	if msg.Reply == "" {
		return
	}
	data, err := reply.Marshal()
	if err != nil {
		c.logger.Warn("Failed to marshal control reply", "error", err)
		return
	}
	if err := msg.Respond(data); err != nil {
		c.logger.Warn("Failed to send control reply", "error", err)
	}
}

func (c *Controller) apply(msg *nats.Msg) ControlReply {
	mixerName, action, ok := parseControlSubject(msg.Subject)
	if !ok {
		return ControlReply{Code: mixer.ErrCodeInvalidParams, Error: "malformed subject " + msg.Subject}
	}
	ctrl, err := UnmarshalControl(msg.Data)
	if err != nil {
		c.logger.Warn("Failed to unmarshal control message", "error", err, "subject", msg.Subject)
		return ControlReply{Code: mixer.ErrCodeInvalidParams, Error: err.Error()}
	}
	if ctrl.Mixer != "" && ctrl.Mixer != mixerName {
		return ControlReply{Code: mixer.ErrCodeInvalidParams, Error: fmt.Sprintf("mixer %q does not match subject", ctrl.Mixer)}
	}
	if ctrl.Action != "" && ctrl.Action != action {
		return ControlReply{Code: mixer.ErrCodeInvalidParams, Error: fmt.Sprintf("action %q does not match subject", ctrl.Action)}
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	c.logger.Info("Received control command", "mixer", mixerName, "action", action, "input", ctrl.Input, "reason", ctrl.Reason)
	switch action {
	case ActionSetActive:
		err = c.switcher.InputSetActive(ctx, mixerName, ctrl.Input)
	case ActionRemoveInput:
		err = c.switcher.InputRemove(ctx, mixerName, ctrl.Input)
	default:
		return ControlReply{Code: mixer.ErrCodeInvalidParams, Error: "unknown action " + action}
	}
	if err != nil {
		c.logger.Warn("Control command failed", "mixer", mixerName, "action", action, "error", err)
		return ControlReply{Code: mixer.CodeOf(err), Error: err.Error()}
	}
	return ControlReply{OK: true}
}

// Stop unsubscribes and closes the connection.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sub != nil {
		_ = c.sub.Unsubscribe()
		c.sub = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.logger.Info("NATS controller stopped")
}

// ControlClient sends control commands and waits for the reply.
type ControlClient struct {
	conn   *nats.Conn
	logger *slog.Logger
}

// NewControlClient connects a client for control commands.
func NewControlClient(url string, logger *slog.Logger) (*ControlClient, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(url,
		nats.Name("switchboard-control"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(5),
	)
	if err != nil {
		return nil, err
	}

	return &ControlClient{
		conn:   conn,
		logger: logger.With("component", "nats-control"),
	}, nil
}

// SetActive asks the server to make input the active input of mixer.
func (c *ControlClient) SetActive(ctx context.Context, mixerName, input string) error {
	return c.request(ctx, mixerName, ActionSetActive, input)
}

// RemoveInput asks the server to remove input from mixer.
func (c *ControlClient) RemoveInput(ctx context.Context, mixerName, input string) error {
	return c.request(ctx, mixerName, ActionRemoveInput, input)
}

func (c *ControlClient) request(ctx context.Context, mixerName, action, input string) error {
	msg := ControlMessage{
		Action:    action,
		Mixer:     mixerName,
		Input:     input,
		Timestamp: time.Now().Format(time.RFC3339),
	}
	data, err := msg.Marshal()
	if err != nil {
		return err
	}

	resp, err := c.conn.RequestWithContext(ctx, SubjectControl(mixerName, action), data)
	if err != nil {
		return err
	}
	reply, err := UnmarshalReply(resp.Data)
	if err != nil {
		return err
	}
	if !reply.OK {
		return mixer.NewError(reply.Code, mixer.KindInput, input, reply.Error, nil)
	}
	c.logger.Info("Control command applied", "mixer", mixerName, "action", action, "input", input)
	return nil
}

// Close closes the client connection.
func (c *ControlClient) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}
