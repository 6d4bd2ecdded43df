package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/ni/labview-automation/pkg/lib"
	"github.com/ni/labview-automation/pkg/lib/logging"
	"github.com/ni/labview-automation/pkg/lib/metrics"
	"github.com/ni/labview-automation/pkg/lib/wire"
)

// DefaultPort is the port the listener binds unless configured otherwise.
const DefaultPort uint16 = 2552

// Dialer opens the TCP stream to the listener. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Client talks to the LabVIEW listener.
//
// A Client is either disconnected or holds one connection opened by Connect.
// While disconnected, each operation opens a connection for that single
// exchange and closes it afterwards. Operations on one Client never overlap.
type Client struct {
	address   string
	dialer    Dialer
	ioTimeout time.Duration
	logger    *slog.Logger
	metrics   *metrics.Registry

	mu      sync.Mutex
	conn    net.Conn
	session string
}

// Option configures a Client.
type Option func(*Client)

// WithDialer replaces the default net.Dialer.
func WithDialer(d Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMetrics records every command in r.
func WithMetrics(r *metrics.Registry) Option {
	return func(c *Client) { c.metrics = r }
}

// WithIOTimeout bounds each exchange when the context carries no deadline.
// Zero, the default, waits as long as the VI takes.
func WithIOTimeout(d time.Duration) Option {
	return func(c *Client) { c.ioTimeout = d }
}

// New creates a disconnected Client for the listener at host:port.
func New(host string, port uint16, opts ...Option) *Client {
	c := &Client{
		address: net.JoinHostPort(host, strconv.Itoa(int(port))),
		dialer:  &net.Dialer{},
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Address returns host:port of the listener.
func (c *Client) Address() string { return c.address }

// Connected reports whether Connect has opened a connection that is not yet closed.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Connect opens the connection used by subsequent operations until Close.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return errors.New("client already connected")
	}
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	c.conn = conn
	c.session = lib.NewID()
	c.logger.Debug("connected to listener", "address", c.address, "session", c.session)
	return nil
}

// Close releases the connection. It is safe to call at any time, any number of times.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.logger.Debug("disconnected from listener", "address", c.address, "session", c.session)
	c.conn = nil
	c.session = ""
	return err
}

// Session connects, runs fn, and closes the connection on every exit path.
func (c *Client) Session(ctx context.Context, fn func(*Client) error) (err error) {
	if err := c.Connect(ctx); err != nil {
		return err
	}
	defer func() {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(c)
}

// Ping opens and immediately closes a connection, proving the listener accepts connections.
func (c *Client) Ping(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	return conn.Close()
}

// RunVI runs a VI and returns its indicator values.
func (c *Client) RunVI(ctx context.Context, req RunVIRequest) (wire.Document, error) {
	return c.call(ctx, newRunVICommand(req), true)
}

// SetControls writes control values on a VI without running it.
func (c *Client) SetControls(ctx context.Context, req SetControlsRequest) (wire.Document, error) {
	return c.call(ctx, newSetControlsCommand(req), true)
}

// GetIndicators reads indicator values from a VI without running it.
func (c *Client) GetIndicators(ctx context.Context, req GetIndicatorsRequest) (wire.Document, error) {
	return c.call(ctx, newGetIndicatorsCommand(req), true)
}

// DescribeError asks LabVIEW for the human-readable text of an error cluster.
// The response is never checked for a status field. Transport failures and a
// missing or non-string msg field are returned as errors; the message is never
// silently blank.
func (c *Client) DescribeError(ctx context.Context, code int32, source string, status bool) (string, error) {
	doc, err := c.call(ctx, newDescribeErrorCommand(code, source, status), false)
	if err != nil {
		return "", err
	}
	return describeMessage(doc)
}

func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	conn, err := c.dialer.DialContext(ctx, "tcp", c.address)
	if err != nil {
		return nil, fmt.Errorf("connect to listener %s: %w", c.address, err)
	}
	return conn, nil
}

// call performs one command. Error enrichment runs on the same connection as the command.
func (c *Client) call(ctx context.Context, cmd Command, check bool) (wire.Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, session := c.conn, c.session
	if conn == nil {
		var err error
		conn, err = c.dial(ctx)
		if err != nil {
			return nil, err
		}
		session = lib.NewID()
		defer conn.Close()
	}

	logger := c.logger.With("session", session, "command", cmd.Name())
	doc, err := c.roundTrip(ctx, conn, cmd)
	if err != nil {
		logger.Warn("command failed", "error", err)
		return nil, err
	}
	if !check {
		return doc, nil
	}
	if err := c.checkForError(ctx, conn, doc); err != nil {
		logger.Info("listener reported error", "error", err)
		return nil, err
	}
	return doc, nil
}

func (c *Client) roundTrip(ctx context.Context, conn net.Conn, cmd Command) (doc wire.Document, err error) {
	started := time.Now()
	defer func() { c.metrics.ObserveRPC(cmd.Name(), started, err) }()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else if c.ioTimeout > 0 {
		_ = conn.SetDeadline(started.Add(c.ioTimeout))
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})
	defer func() {
		stop()
		_ = conn.SetDeadline(time.Time{})
	}()

	if err = wire.WriteFrame(conn, cmd); err != nil {
		return nil, contextError(ctx, fmt.Errorf("send %s: %w", cmd.Name(), err))
	}
	doc, err = wire.Decode(conn)
	if err != nil {
		return nil, contextError(ctx, fmt.Errorf("receive %s: %w", cmd.Name(), err))
	}
	return doc, nil
}

// checkForError turns a response whose status field is true into a RemoteError.
// A response without a status field is a success.
func (c *Client) checkForError(ctx context.Context, conn net.Conn, doc wire.Document) error {
	if _, ok := doc.Lookup(fieldStatus); !ok {
		return nil
	}
	failed, err := doc.Bool(fieldStatus)
	if err != nil {
		return &lib.ProtocolError{Op: "check status", Err: err}
	}
	if !failed {
		return nil
	}
	code, err := doc.Int32(fieldCode)
	if err != nil {
		return &lib.ProtocolError{Op: "check status", Err: err}
	}
	source, err := doc.String(fieldSource)
	if err != nil {
		return &lib.ProtocolError{Op: "check status", Err: err}
	}

	remote := &lib.RemoteError{Code: code, Source: source}
	described, err := c.roundTrip(ctx, conn, newDescribeErrorCommand(code, source, failed))
	if err == nil {
		remote.Message, err = describeMessage(described)
	}
	remote.DescribeErr = err
	return remote
}

func describeMessage(doc wire.Document) (string, error) {
	msg, err := doc.String(fieldMsg)
	if err != nil {
		return "", &lib.ProtocolError{Op: CommandDescribeError, Err: err}
	}
	return msg, nil
}

func contextError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", ctxErr, err)
	}
	// The socket deadline can fire a moment before the context's own timer.
	if deadline, ok := ctx.Deadline(); ok && !time.Now().Before(deadline) {
		return fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	}
	return err
}
