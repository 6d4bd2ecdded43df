package labview

import (
	"log/slog"
	"time"

	"github.com/ni/labview-automation/pkg/lib"
	"github.com/ni/labview-automation/pkg/lib/client"
	"github.com/ni/labview-automation/pkg/lib/clock"
	"github.com/ni/labview-automation/pkg/lib/helpers"
	"github.com/ni/labview-automation/pkg/lib/lvini"
	"github.com/ni/labview-automation/pkg/lib/metrics"
)

// DefaultPollInterval is the pause between readiness probes.
const DefaultPollInterval = 250 * time.Millisecond

// DefaultStartTimeout is how long Start waits for the automation server by default.
const DefaultStartTimeout = 15 * time.Minute

type Option func(*LabVIEW)

// WithHost sets the machine LabVIEW runs on. Anything but localhost needs WithHelpers.
func WithHost(host string) Option {
	return func(l *LabVIEW) { l.host = host }
}

// WithVersion selects an installation whose path contains version. Empty uses the active one.
func WithVersion(version string) Option {
	return func(l *LabVIEW) { l.version = version }
}

// WithBitness selects "x86" or "x64". It is ignored when no version is set.
func WithBitness(bitness string) Option {
	return func(l *LabVIEW) { l.bitness = bitness }
}

// WithServer configures the automation listener launched with LabVIEW.
func WithServer(cfg lib.ServerConfiguration) Option {
	return func(l *LabVIEW) { l.server = cfg }
}

// WithHelpers sets where installation lookup and process control run.
func WithHelpers(h helpers.SystemHelpers) Option {
	return func(l *LabVIEW) { l.helpers = h }
}

func WithClock(c clock.Clock) Option {
	return func(l *LabVIEW) { l.clock = c }
}

// WithPollInterval sets the pause between readiness probes.
func WithPollInterval(d time.Duration) Option {
	return func(l *LabVIEW) { l.pollInterval = d }
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *LabVIEW) { l.logger = logger }
}

// WithClientOptions is applied to every client the controller creates, readiness probes included.
func WithClientOptions(opts ...client.Option) Option {
	return func(l *LabVIEW) { l.clientOpts = append(l.clientOpts, opts...) }
}

func WithMetrics(r *metrics.Registry) Option {
	return func(l *LabVIEW) { l.metrics = r }
}

// WithOptions replaces the default INI token set.
func WithOptions(o *lvini.Options) Option {
	return func(l *LabVIEW) { l.options = o }
}
