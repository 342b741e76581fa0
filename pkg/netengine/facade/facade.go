// Package facade implements the Engine Facade (Component G): the public
// contract consumed by a chess GUI for a remote, socket-backed UCI
// engine, wrapping a session.Session and an option.Registry.
package facade

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/seekerror/build"
	"github.com/seekerror/logw"
	"github.com/seekerror/stdlib/pkg/lang"
	"github.com/seekerror/stdlib/pkg/util/iox"

	"github.com/vidar808/netengine/pkg/netengine/config"
	"github.com/vidar808/netengine/pkg/netengine/linepipe"
	"github.com/vidar808/netengine/pkg/netengine/option"
	"github.com/vidar808/netengine/pkg/netengine/session"
	"github.com/vidar808/netengine/pkg/netengine/transport"
)

// upnpRevalidateTimeout bounds how long Reconnect waits on the IGD
// gateway before giving up and reusing the configured external_host
// as-is.
const upnpRevalidateTimeout = 3 * time.Second

var version = build.NewVersion(0, 1, 0)

// HostOptions are the host's desired values for the options the core
// configures directly at startup, per spec.md §4.G.
type HostOptions struct {
	Hash          uint
	SyzygyPath    string
	GaviotaTbPath string
}

// Reporter is the host-supplied failure-reporting capability.
type Reporter interface {
	ReportError(message string)
}

// Facade is the public, GUI-facing handle onto a remote UCI engine
// connection. It holds no external dependency beyond the Endpoint
// descriptor and the Reporter.
type Facade struct {
	ep       config.Endpoint
	reporter Reporter

	registry *option.Registry

	sess *session.Session
	// toEngine/fromEngine are the GUI-facing pipes. They outlive any one
	// session.Session: Reconnect hands them to the replacement session
	// instead of letting a fresh pair appear, per SPEC_FULL.md §2.7.
	toEngine   *linepipe.Pipe
	fromEngine *linepipe.Pipe

	// pulse wakes the reconnect-bookkeeping watcher whenever the
	// underlying session transitions to error, grounded on
	// cmd/livechess-uci/main.go's adaptor.pulse pattern.
	pulse *iox.Pulse

	quit iox.AsyncCloser
}

// New constructs a Facade for ep. Start must be called to begin the
// connection.
func New(ep config.Endpoint, reporter Reporter) *Facade {
	return &Facade{
		ep:         ep,
		reporter:   reporter,
		registry:   option.NewRegistry(),
		toEngine:   linepipe.New(),
		fromEngine: linepipe.New(),
		pulse:      iox.NewPulse(),
		quit:       iox.NewAsyncCloser(),
	}
}

// Version identifies this network engine core build.
func Version() string { return fmt.Sprintf("%v", version) }

type sessionReporter struct{ f *Facade }

func (r sessionReporter) ReportError(message string) {
	r.f.reporter.ReportError(message)
	r.f.pulse.Emit()
}

// Start transitions the facade to Connecting: it builds and starts a new
// session.Session. Startup failures surface only via the Reporter
// callback, never as a return value.
func (f *Facade) Start(ctx context.Context) {
	f.sess = session.NewWithPipes(f.ep, sessionReporter{f}, f.toEngine, f.fromEngine)
	f.sess.Start(ctx)
}

// ReadLine returns the next engine->GUI line, or "" (null) once the
// engine->GUI pipe is closed and empty.
func (f *Facade) ReadLine(timeout time.Duration) (string, bool) {
	line := f.fromEngine.Read(timeout)
	if line == linepipe.Closed {
		return "", false
	}
	if line == "" {
		return "", true // timeout: no line ready, pipe still open
	}
	return line, true
}

// WriteLine enqueues data (no trailing newline) to the GUI->engine pipe.
// Silently dropped if the pipe is closed.
func (f *Facade) WriteLine(data string) {
	f.toEngine.Push(data)
}

// InitOptions emits `setoption name ... value ...` lines for the host's
// desired Hash, SyzygyPath, and GaviotaTbPath values.
func (f *Facade) InitOptions(host HostOptions) {
	if host.Hash > 0 {
		f.WriteLine(fmt.Sprintf("setoption name Hash value %d", host.Hash))
	}
	if host.SyzygyPath != "" {
		f.WriteLine(fmt.Sprintf("setoption name SyzygyPath value %s", host.SyzygyPath))
	}
	if host.GaviotaTbPath != "" {
		f.WriteLine(fmt.Sprintf("setoption name GaviotaTbPath value %s", host.GaviotaTbPath))
	}
}

// OptionsOK reports whether the engine is healthy and its pre-init
// option values agree with host. It is false iff the session is in error
// state, or a pre-init option value disagrees with host.
func (f *Facade) OptionsOK(host HostOptions) bool {
	if f.sess == nil || f.sess.IsError() {
		return false
	}
	if o, ok := f.registry.Lookup("Hash"); ok && host.Hash > 0 {
		if o.Current.Int != int64(host.Hash) {
			return false
		}
	}
	if o, ok := f.registry.Lookup("SyzygyPath"); ok && host.SyzygyPath != "" {
		if o.Current.Str != host.SyzygyPath {
			return false
		}
	}
	if o, ok := f.registry.Lookup("GaviotaTbPath"); ok && host.GaviotaTbPath != "" {
		if o.Current.Str != host.GaviotaTbPath {
			return false
		}
	}
	return true
}

// VisibleOptions returns the GUI-editable subset of the engine's
// declared options (supplemented feature, SPEC_FULL.md §2.6).
func (f *Facade) VisibleOptions() []option.Option {
	return f.registry.Visible()
}

// ObserveDeclaration records an `option name ... type ...` line observed
// on the engine->GUI pipe into the options registry, so VisibleOptions
// and OptionsOK reflect the engine's actual declared options.
func (f *Facade) ObserveDeclaration(line string) {
	if strings.HasPrefix(line, "option ") {
		f.registry.RegisterDeclaration(line)
	}
}

// Shutdown sets the shutdown flag, interrupts the watchdog and both I/O
// tasks, attempts a best-effort quit, closes the socket, and closes both
// pipes.
func (f *Facade) Shutdown() {
	if f.quit.IsClosed() {
		return
	}
	f.quit.Close()
	if f.sess != nil {
		f.sess.Shutdown()
	}
}

// Reconnect tears down the current transport and handshake exactly as
// Shutdown does, minus closing the GUI-facing pipes (SPEC_FULL.md §2.7),
// then re-runs the selector and replays the last known `position` and
// `go` lines on the new session: a reconnect should not force the GUI
// to resend search state the core already observed before the drop, nor
// leak the prior session's goroutines and socket, nor surface a spurious
// failure report from the dead connection's Reader.
func (f *Facade) Reconnect(ctx context.Context) error {
	var lastPosition, lastGo string
	if f.sess != nil {
		lastPosition, _ = f.sess.LastPositionLine()
		lastGo, _ = f.sess.LastGoLine()
		f.sess.Detach()
	}

	f.revalidateExternalHost(ctx)

	f.Start(ctx)

	select {
	case <-f.pulse.Chan():
		if f.sess.IsError() {
			return fmt.Errorf("facade: reconnect failed")
		}
	case <-time.After(2 * time.Second):
	}

	if lastPosition != "" {
		f.WriteLine(lastPosition)
	}
	if lastGo != "" {
		f.WriteLine(lastGo)
	}

	logw.Infof(ctx, "facade: reconnected, replayed position=%q go=%q", lastPosition, lastGo)
	return nil
}

// revalidateExternalHost re-queries the local IGD gateway for its
// currently reported external address and updates ep.ExternalHost if it
// has drifted, so Reconnect's UPnP strategy re-dials the gateway's
// actual current address rather than blindly reusing a stale one. Best
// effort: a gateway query failure just leaves the configured value in
// place.
func (f *Facade) revalidateExternalHost(ctx context.Context) {
	host, ok := f.ep.ExternalHost.V()
	if !ok || host == "" {
		return
	}

	qctx, cancel := context.WithTimeout(ctx, upnpRevalidateTimeout)
	defer cancel()

	ip, err := transport.ExternalAddrFromUPnP(qctx)
	if err != nil {
		logw.Debugf(ctx, "facade: upnp external address re-validation failed, reusing configured host: %v", err)
		return
	}
	if ip != host {
		logw.Infof(ctx, "facade: upnp reports external address %s differs from configured %s, updating", ip, host)
		f.ep.ExternalHost = lang.Some(ip)
	}
}
