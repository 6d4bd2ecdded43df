package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/ni/labview-automation/pkg/lib"
	"github.com/ni/labview-automation/pkg/lib/metrics"
	"github.com/ni/labview-automation/pkg/lib/wire"
)

// handlerFunc answers one request. Returning ok=false closes the connection without replying.
type handlerFunc func(req wire.Document) (resp any, ok bool)

type fakeListener struct {
	ln      net.Listener
	handler handlerFunc

	mu       sync.Mutex
	requests []wire.Document
	conns    int
}

func startListener(t *testing.T, handler handlerFunc) *fakeListener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	f := &fakeListener{ln: ln, handler: handler}
	go f.serve()
	t.Cleanup(func() { _ = ln.Close() })
	return f
}

func (f *fakeListener) serve() {
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		f.mu.Lock()
		f.conns++
		f.mu.Unlock()
		go f.handle(conn)
	}
}

func (f *fakeListener) handle(conn net.Conn) {
	defer conn.Close()
	for {
		req, err := wire.Decode(conn)
		if err != nil {
			return
		}
		f.mu.Lock()
		f.requests = append(f.requests, req)
		f.mu.Unlock()

		resp, ok := f.handler(req)
		if !ok {
			return
		}
		if err := wire.WriteFrame(conn, resp); err != nil {
			return
		}
	}
}

func (f *fakeListener) port() uint16 {
	return uint16(f.ln.Addr().(*net.TCPAddr).Port)
}

func (f *fakeListener) connections() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conns
}

func (f *fakeListener) received() []wire.Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]wire.Document(nil), f.requests...)
}

func commandOf(req wire.Document) string {
	name, _ := req.String("command")
	return name
}

// describing answers describe_error with a message derived from the error cluster
// and delegates everything else to next.
func describing(next handlerFunc) handlerFunc {
	return func(req wire.Document) (any, bool) {
		if commandOf(req) != CommandDescribeError {
			return next(req)
		}
		v, _ := req.Lookup("error")
		cluster := wire.Document(v.(bson.D))
		code, _ := cluster.Int32("code")
		source, _ := cluster.String("source")
		return bson.D{{Key: "msg", Value: fmt.Sprintf("error %d occurred at %s", code, source)}}, true
	}
}

func failing(code int32, source string) handlerFunc {
	return describing(func(wire.Document) (any, bool) {
		return bson.D{
			{Key: fieldStatus, Value: true},
			{Key: fieldCode, Value: code},
			{Key: fieldSource, Value: source},
		}, true
	})
}

func TestRunVIReturnsResponseWithoutStatus(t *testing.T) {
	f := startListener(t, func(wire.Document) (any, bool) {
		return bson.D{{Key: "sum", Value: int32(3)}, {Key: "label", Value: "ok"}}, true
	})
	c := New("127.0.0.1", f.port())

	doc, err := c.RunVI(context.Background(), RunVIRequest{
		VIPath:        `C:\Add.vi`,
		ControlValues: map[string]any{"a": int32(1), "b": int32(2)},
	})
	require.NoError(t, err)
	assert.Equal(t, wire.Document{{Key: "sum", Value: int32(3)}, {Key: "label", Value: "ok"}}, doc)

	reqs := f.received()
	require.Len(t, reqs, 1)
	assert.Equal(t, []string{"command", "vi_path", "run_options", "open_frontpanel", "control_values", "indicator_names"}, reqs[0].Keys())
	names, _ := reqs[0].Lookup("indicator_names")
	require.IsType(t, bson.A{}, names)
	assert.Empty(t, names, "empty indicator list means all outputs")
}

func TestControlValuesEncodeInKeyOrder(t *testing.T) {
	controls := map[string]any{
		"zeta": int32(1), "alpha": "a", "mid": 2.5,
		"cluster": map[string]any{"y": int32(2), "x": int32(1)},
		"list":    []any{map[string]any{"b": true, "a": false}},
	}
	want, err := bson.Marshal(newRunVICommand(RunVIRequest{VIPath: "a.vi", ControlValues: controls}))
	require.NoError(t, err)
	for range 20 {
		got, err := bson.Marshal(newSetControlsCommand(SetControlsRequest{VIPath: "a.vi", ControlValues: controls}))
		require.NoError(t, err)
		var doc bson.D
		require.NoError(t, bson.Unmarshal(got, &doc))
		values, ok := wire.Document(doc).Lookup("control_values")
		require.True(t, ok)
		require.IsType(t, bson.D{}, values)
		assert.Equal(t, []string{"alpha", "cluster", "list", "mid", "zeta"}, wire.Document(values.(bson.D)).Keys())

		again, err := bson.Marshal(newRunVICommand(RunVIRequest{VIPath: "a.vi", ControlValues: controls}))
		require.NoError(t, err)
		assert.Equal(t, want, again)
	}

	cluster, _ := wire.Document(sortedDocument(controls)).Lookup("cluster")
	assert.Equal(t, bson.D{{Key: "x", Value: int32(1)}, {Key: "y", Value: int32(2)}}, cluster)
	list, _ := wire.Document(sortedDocument(controls)).Lookup("list")
	assert.Equal(t, bson.A{bson.D{{Key: "a", Value: false}, {Key: "b", Value: true}}}, list)
	assert.NotNil(t, sortedDocument(nil))
}

func TestNoStatusSuccessForAllCommands(t *testing.T) {
	echo := bson.D{{Key: "value", Value: 1.5}}
	f := startListener(t, func(wire.Document) (any, bool) { return echo, true })
	c := New("127.0.0.1", f.port())
	ctx := context.Background()

	doc, err := c.RunVI(ctx, RunVIRequest{VIPath: "a.vi"})
	require.NoError(t, err)
	assert.Equal(t, wire.Document(echo), doc)

	doc, err = c.SetControls(ctx, SetControlsRequest{ProjectPath: "p.lvproj", TargetName: "My Computer", VIPath: "a.vi"})
	require.NoError(t, err)
	assert.Equal(t, wire.Document(echo), doc)

	doc, err = c.GetIndicators(ctx, GetIndicatorsRequest{ProjectPath: "p.lvproj", TargetName: "My Computer", VIPath: "a.vi", IndicatorNames: []string{"value"}})
	require.NoError(t, err)
	assert.Equal(t, wire.Document(echo), doc)

	var commands []string
	for _, req := range f.received() {
		commands = append(commands, commandOf(req))
	}
	assert.Equal(t, []string{CommandRunVI, CommandSetControls, CommandGetIndicators}, commands)
}

func TestStatusFalseIsSuccess(t *testing.T) {
	f := startListener(t, func(wire.Document) (any, bool) {
		return bson.D{{Key: fieldStatus, Value: false}, {Key: fieldCode, Value: int32(0)}, {Key: fieldSource, Value: ""}}, true
	})
	c := New("127.0.0.1", f.port())

	_, err := c.SetControls(context.Background(), SetControlsRequest{VIPath: "a.vi", IgnoreNonexistentControls: true})
	require.NoError(t, err)
}

func TestRemoteErrorIsDescribed(t *testing.T) {
	f := startListener(t, failing(42, "X"))
	c := New("127.0.0.1", f.port())

	_, err := c.RunVI(context.Background(), RunVIRequest{VIPath: "a.vi"})

	var remote *lib.RemoteError
	require.True(t, errors.As(err, &remote), "got %v", err)
	assert.Equal(t, int32(42), remote.Code)
	assert.Equal(t, "X", remote.Source)
	assert.Equal(t, "error 42 occurred at X", remote.Message)
	assert.NoError(t, remote.DescribeErr)

	reqs := f.received()
	require.Len(t, reqs, 2)
	assert.Equal(t, CommandDescribeError, commandOf(reqs[1]))
	assert.Equal(t, 1, f.connections(), "describe_error reuses the command's connection")
}

func TestRemoteErrorForSetAndGet(t *testing.T) {
	f := startListener(t, failing(-1967362045, "Open VI Reference"))
	c := New("127.0.0.1", f.port())
	ctx := context.Background()

	_, err := c.SetControls(ctx, SetControlsRequest{VIPath: "a.vi"})
	var remote *lib.RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, int32(-1967362045), remote.Code)

	_, err = c.GetIndicators(ctx, GetIndicatorsRequest{VIPath: "a.vi"})
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, "Open VI Reference", remote.Source)
}

func TestDescribeFailureIsReported(t *testing.T) {
	f := startListener(t, func(req wire.Document) (any, bool) {
		if commandOf(req) == CommandDescribeError {
			return nil, false
		}
		return bson.D{{Key: fieldStatus, Value: true}, {Key: fieldCode, Value: int32(7)}, {Key: fieldSource, Value: "Y"}}, true
	})
	c := New("127.0.0.1", f.port())

	_, err := c.RunVI(context.Background(), RunVIRequest{VIPath: "a.vi"})

	var remote *lib.RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, int32(7), remote.Code)
	assert.Empty(t, remote.Message)
	require.Error(t, remote.DescribeErr)
	assert.ErrorIs(t, err, lib.ErrTruncated)
}

func TestDescribeErrorSkipsStatusCheck(t *testing.T) {
	f := startListener(t, func(wire.Document) (any, bool) {
		return bson.D{{Key: fieldStatus, Value: true}, {Key: fieldCode, Value: int32(1)}, {Key: fieldSource, Value: "Z"}, {Key: "msg", Value: "described"}}, true
	})
	c := New("127.0.0.1", f.port())

	msg, err := c.DescribeError(context.Background(), 1, "Z", true)
	require.NoError(t, err)
	assert.Equal(t, "described", msg)

	reqs := f.received()
	require.Len(t, reqs, 1)
	cluster, _ := reqs[0].Lookup("error")
	assert.Equal(t, bson.D{{Key: "code", Value: int32(1)}, {Key: "status", Value: true}, {Key: "source", Value: "Z"}}, cluster)
}

func TestDescribeErrorMissingMessage(t *testing.T) {
	f := startListener(t, func(wire.Document) (any, bool) {
		return bson.D{{Key: "other", Value: "x"}}, true
	})
	c := New("127.0.0.1", f.port())

	_, err := c.DescribeError(context.Background(), 1, "Z", true)
	var perr *lib.ProtocolError
	assert.True(t, errors.As(err, &perr))
}

func TestMalformedStatusFields(t *testing.T) {
	f := startListener(t, func(wire.Document) (any, bool) {
		return bson.D{{Key: fieldStatus, Value: true}, {Key: fieldCode, Value: "not a number"}, {Key: fieldSource, Value: "Z"}}, true
	})
	c := New("127.0.0.1", f.port())

	_, err := c.RunVI(context.Background(), RunVIRequest{VIPath: "a.vi"})
	var perr *lib.ProtocolError
	assert.True(t, errors.As(err, &perr))
}

func TestSessionReusesConnection(t *testing.T) {
	f := startListener(t, func(wire.Document) (any, bool) { return bson.D{}, true })
	c := New("127.0.0.1", f.port())
	ctx := context.Background()

	err := c.Session(ctx, func(c *Client) error {
		assert.True(t, c.Connected())
		if _, err := c.RunVI(ctx, RunVIRequest{VIPath: "a.vi"}); err != nil {
			return err
		}
		_, err := c.GetIndicators(ctx, GetIndicatorsRequest{VIPath: "a.vi"})
		return err
	})
	require.NoError(t, err)
	assert.False(t, c.Connected())
	assert.Equal(t, 1, f.connections())

	_, err = c.RunVI(ctx, RunVIRequest{VIPath: "a.vi"})
	require.NoError(t, err)
	_, err = c.RunVI(ctx, RunVIRequest{VIPath: "a.vi"})
	require.NoError(t, err)
	assert.Equal(t, 3, f.connections(), "calls outside a session use their own connection")
}

func TestSessionReleasesConnectionOnError(t *testing.T) {
	f := startListener(t, func(wire.Document) (any, bool) { return bson.D{}, true })
	c := New("127.0.0.1", f.port())

	boom := errors.New("boom")
	err := c.Session(context.Background(), func(*Client) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, c.Connected())
}

func TestConnectTwiceFails(t *testing.T) {
	f := startListener(t, func(wire.Document) (any, bool) { return bson.D{}, true })
	c := New("127.0.0.1", f.port())

	require.NoError(t, c.Connect(context.Background()))
	assert.Error(t, c.Connect(context.Background()))
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}

func TestConnectRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := uint16(ln.Addr().(*net.TCPAddr).Port)
	require.NoError(t, ln.Close())

	c := New("127.0.0.1", port)
	assert.Error(t, c.Connect(context.Background()))
	assert.Error(t, c.Ping(context.Background()))
	_, err = c.RunVI(context.Background(), RunVIRequest{VIPath: "a.vi"})
	assert.Error(t, err)
}

func TestContextDeadlineAbortsExchange(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	f := startListener(t, func(wire.Document) (any, bool) {
		<-release
		return nil, false
	})
	c := New("127.0.0.1", f.port())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := c.RunVI(ctx, RunVIRequest{VIPath: "slow.vi"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMetricsRecorded(t *testing.T) {
	f := startListener(t, failing(5, "S"))
	reg := metrics.New(prometheus.NewRegistry())
	c := New("127.0.0.1", f.port(), WithMetrics(reg))

	_, err := c.RunVI(context.Background(), RunVIRequest{VIPath: "a.vi"})
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(reg.RPCCalls.WithLabelValues(CommandRunVI, "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.RPCCalls.WithLabelValues(CommandDescribeError, "ok")))
}
