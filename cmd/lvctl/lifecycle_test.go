package main

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ni/labview-automation/pkg/lib"
	"github.com/ni/labview-automation/pkg/lib/client"
	"github.com/ni/labview-automation/pkg/lib/helpers/helperstest"
	"github.com/ni/labview-automation/pkg/lib/logging"
	"github.com/ni/labview-automation/pkg/lib/wire"
)

const labviewExe = "/usr/local/natinst/LabVIEW-2020-64/labview64"

// gateDialer refuses connections until opened, then dials for real.
type gateDialer struct {
	open atomic.Bool
}

func (d *gateDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if !d.open.Load() {
		return nil, &net.OpError{Op: "dial", Net: network, Err: errors.New("connection refused")}
	}
	var nd net.Dialer
	return nd.DialContext(ctx, network, address)
}

type lifecycle struct {
	fake   *helperstest.Fake
	dialer *gateDialer
	ln     *fakeListener
	app    *app
}

func newLifecycle(t *testing.T, listening bool) *lifecycle {
	t.Helper()
	l := &lifecycle{
		fake:   helperstest.New(lib.Installation{Dir: "/usr/local/natinst/LabVIEW-2020-64", Executable: labviewExe}),
		dialer: &gateDialer{},
		ln:     startListener(t, func(wire.Document) any { return bson.D{} }),
	}
	l.dialer.open.Store(listening)
	l.app = &app{
		logger:     logging.Discard(),
		helpers:    l.fake,
		clientOpts: []client.Option{client.WithDialer(l.dialer)},
	}
	return l
}

func (l *lifecycle) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	base := []string{"--host", "127.0.0.1", "--port", strconv.Itoa(l.ln.port)}
	return executeWith(t, l.app, append(base, args...)...)
}

func TestStartCommandLaunchesWithListener(t *testing.T) {
	l := newLifecycle(t, false)
	l.fake.OnStart = func(int, []string) { l.dialer.open.Store(true) }

	out, _, err := l.run(t, "start", "--timeout", "5s", "--disable-dialogs")
	require.NoError(t, err)
	assert.Equal(t, "1001\n", out)

	started := l.fake.Started()
	require.Len(t, started, 1)
	assert.Equal(t, labviewExe, started[0][0])
	assert.Equal(t, "/opt/listener/Splash Screen.vi", started[0][1])
	assert.Contains(t, started[0], strconv.Itoa(l.ln.port))
}

func TestStartCommandHandsOffToInstanceWithoutListener(t *testing.T) {
	l := newLifecycle(t, false)
	pid := l.fake.Spawn(labviewExe)
	l.fake.OnStart = func(int, []string) { l.dialer.open.Store(true) }

	out, _, err := l.run(t, "start", "--timeout", "5s")
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(pid)+"\n", out)

	started := l.fake.Started()
	require.Len(t, started, 1, "the running instance must receive the listener arguments")
	assert.Equal(t, "/opt/listener/Splash Screen.vi", started[0][1])
}

func TestStartCommandReusesListeningInstance(t *testing.T) {
	l := newLifecycle(t, true)
	pid := l.fake.Spawn(labviewExe)

	out, _, err := l.run(t, "start", "--timeout", "5s")
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(pid)+"\n", out)
	assert.Empty(t, l.fake.Started())
}

func TestStartCommandTimesOut(t *testing.T) {
	l := newLifecycle(t, false)

	_, _, err := l.run(t, "start", "--timeout", "300ms")
	var timeoutErr *lib.TimeoutError
	require.True(t, errors.As(err, &timeoutErr), "got %v", err)
	assert.Len(t, l.fake.Started(), 1)
}

func TestRestartCommand(t *testing.T) {
	l := newLifecycle(t, true)
	old := l.fake.Spawn(labviewExe)

	out, _, err := l.run(t, "restart", "--timeout", "5s")
	require.NoError(t, err)
	assert.Equal(t, []int{old}, l.fake.Kills())
	require.Len(t, l.fake.Started(), 1)
	assert.Equal(t, strconv.Itoa(old+1)+"\n", out)
}

func TestKillCommand(t *testing.T) {
	l := newLifecycle(t, true)
	pid := l.fake.Spawn(labviewExe)

	out, _, err := l.run(t, "kill", "--timeout", "1s")
	require.NoError(t, err)
	assert.Equal(t, []int{pid}, l.fake.Kills())
	assert.Contains(t, out, "| 127.0.0.1 | "+strconv.Itoa(pid)+" |")
	assert.False(t, l.fake.Running(pid))
}

func TestKillCommandNotRunning(t *testing.T) {
	l := newLifecycle(t, true)

	out, errOut, err := l.run(t, "kill")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, "LabVIEW is not running.\n", errOut)
	assert.Empty(t, l.fake.Kills())
}

func TestKillCommandForbidden(t *testing.T) {
	l := newLifecycle(t, true)
	pid := l.fake.Spawn(labviewExe)
	l.fake.KillErr = status.Error(codes.PermissionDenied, "owned by another caller")

	_, errOut, err := l.run(t, "kill")
	require.NoError(t, err)
	assert.Contains(t, errOut, "Forbidden.")
	assert.True(t, l.fake.Running(pid))
}

func TestStatusCommand(t *testing.T) {
	l := newLifecycle(t, true)
	pid := l.fake.Spawn(labviewExe)

	out, _, err := l.run(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "| 127.0.0.1 | "+strconv.Itoa(pid)+" | Running | 512.0 MiB | "+labviewExe+" |")
}

func TestStatusCommandNotRunning(t *testing.T) {
	l := newLifecycle(t, true)

	out, _, err := l.run(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "| 127.0.0.1 | -   | NotStarted | -      | "+labviewExe+" |")
}
