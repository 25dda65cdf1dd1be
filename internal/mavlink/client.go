// Package mavlink owns the flight controller link: endpoint setup, the
// Disconnected/Connecting/Connected lifecycle, and the outbound message
// operations the rest of the daemon uses.
package mavlink

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/bluenviron/gomavlib/v3"
	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/bluenviron/gomavlib/v3/pkg/message"
)

// State is the connection lifecycle state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// ErrNotConnected is returned by send operations before the flight
// controller has been heard from.
var ErrNotConnected = errors.New("flight controller not connected")

const statusTextPrefix = "DPX: "

// maximum STATUSTEXT payload per the common dialect
const statusTextMaxLen = 50

// Config describes the controller link.
type Config struct {
	// Target is a serial device path, or a udp://host:port / tcp://host:port
	// address.
	Target   string
	BaudRate int
	SystemID byte
}

// WithLogger sets the logger for the client.
func WithLogger(logger *slog.Logger) func(*Client) {
	return func(c *Client) {
		c.logger = logger.With(slog.String("component", "mavlink"))
	}
}

// Client wraps a gomavlib node. It is created in the Connecting state and
// moves to Connected when the first inbound frame (the controller's
// heartbeat) arrives. Send operations before that point fail with
// ErrNotConnected.
type Client struct {
	node   *gomavlib.Node
	logger *slog.Logger

	state atomic.Int32
	wg    sync.WaitGroup

	closeOnce sync.Once
	closeErr  error
}

// Dial opens the endpoint and starts watching link events. It does not wait
// for the controller's heartbeat; poll Connected for that.
func Dial(cfg Config, options ...func(*Client)) (*Client, error) {
	c := &Client{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, option := range options {
		option(c)
	}
	c.state.Store(int32(StateConnecting))

	endpoint, err := endpointFor(cfg)
	if err != nil {
		return nil, err
	}

	node, err := gomavlib.NewNode(gomavlib.NodeConf{
		Endpoints:   []gomavlib.EndpointConf{endpoint},
		Dialect:     common.Dialect,
		OutVersion:  gomavlib.V2,
		OutSystemID: cfg.SystemID,
	})
	if err != nil {
		c.state.Store(int32(StateDisconnected))
		return nil, fmt.Errorf("opening MAVLink endpoint '%s': %w", cfg.Target, err)
	}
	c.node = node

	c.logger.Info("MAVLink endpoint open, waiting for heartbeat",
		slog.String("target", cfg.Target))

	c.wg.Add(1)
	go c.watchEvents()

	return c, nil
}

func endpointFor(cfg Config) (gomavlib.EndpointConf, error) {
	switch {
	case strings.HasPrefix(cfg.Target, "udp://"):
		return gomavlib.EndpointUDPClient{Address: strings.TrimPrefix(cfg.Target, "udp://")}, nil

	case strings.HasPrefix(cfg.Target, "tcp://"):
		return gomavlib.EndpointTCPClient{Address: strings.TrimPrefix(cfg.Target, "tcp://")}, nil

	case cfg.Target == "":
		return nil, errors.New("connection target is required")

	default: // serial device path
		if cfg.BaudRate <= 0 {
			return nil, fmt.Errorf("baud rate must be positive, got %d", cfg.BaudRate)
		}
		return gomavlib.EndpointSerial{Device: cfg.Target, Baud: cfg.BaudRate}, nil
	}
}

func (c *Client) watchEvents() {
	defer c.wg.Done()

	for evt := range c.node.Events() {
		switch evt.(type) {
		case *gomavlib.EventFrame:
			if c.state.CompareAndSwap(int32(StateConnecting), int32(StateConnected)) {
				c.logger.Info("flight controller connected")
			}

		case *gomavlib.EventChannelClose:
			c.logger.Warn("MAVLink channel closed")
		}
	}
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	return State(c.state.Load())
}

// Connected reports whether the controller's heartbeat has been seen.
func (c *Client) Connected() bool {
	return c.State() == StateConnected
}

// SendObstacleDistance transmits a sector report.
func (c *Client) SendObstacleDistance(msg *common.MessageObstacleDistance) error {
	return c.send(msg)
}

// SendDistanceSensor transmits a single-point report.
func (c *Client) SendDistanceSensor(msg *common.MessageDistanceSensor) error {
	return c.send(msg)
}

// SendStatusText shows a short notice on the ground control station.
func (c *Client) SendStatusText(text string) error {
	text = statusTextPrefix + text
	if len(text) > statusTextMaxLen {
		text = text[:statusTextMaxLen]
	}
	return c.send(&common.MessageStatustext{
		Severity: common.MAV_SEVERITY_INFO,
		Text:     text,
	})
}

// SetHomePosition declares the EKF origin and home position at the given
// location. Coordinates are degrees*1e7, altitude is millimeters.
func (c *Client) SetHomePosition(latitude, longitude, altitude int32) error {
	if err := c.send(&common.MessageSetGpsGlobalOrigin{
		TargetSystem: 1,
		Latitude:     latitude,
		Longitude:    longitude,
		Altitude:     altitude,
	}); err != nil {
		return fmt.Errorf("setting global origin: %w", err)
	}

	if err := c.send(&common.MessageSetHomePosition{
		TargetSystem: 1,
		Latitude:     latitude,
		Longitude:    longitude,
		Altitude:     altitude,
		Q:            [4]float32{1, 0, 0, 0},
		ApproachZ:    1,
	}); err != nil {
		return fmt.Errorf("setting home position: %w", err)
	}
	return nil
}

func (c *Client) send(msg message.Message) error {
	if !c.Connected() {
		return ErrNotConnected
	}
	return c.node.WriteMessageAll(msg)
}

// Close shuts the link down. Idempotent.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateDisconnected))
		if c.node != nil {
			c.node.Close()
			c.wg.Wait()
		}
		c.logger.Info("MAVLink link closed")
	})
	return c.closeErr
}
