package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/seekerror/logw"
	"github.com/seekerror/stdlib/pkg/util/iox"

	"github.com/vidar808/netengine/pkg/netengine/config"
	"github.com/vidar808/netengine/pkg/netengine/handshake"
	"github.com/vidar808/netengine/pkg/netengine/linepipe"
	"github.com/vidar808/netengine/pkg/netengine/transport"
)

const (
	writerPollInterval = 250 * time.Millisecond
	watchdogDelay      = 10 * time.Second
)

// Reporter is the host-supplied failure-reporting capability; the
// session invokes it with a single user-visible message whenever state
// transitions to error, and never otherwise.
type Reporter interface {
	ReportError(message string)
}

// Session owns one remote engine connection: the Reader task (engine ->
// GUI), the Writer task (GUI -> engine), and a short-lived startup
// watchdog, all gated by a one-shot handshake release so the Writer never
// emits bytes before the Reader has finished the handshake.
type Session struct {
	ep       config.Endpoint
	reporter Reporter
	selector *transport.Selector

	ToEngine   *linepipe.Pipe // GUI -> engine
	FromEngine *linepipe.Pipe // engine -> GUI

	gate     iox.AsyncCloser
	shutdown iox.AsyncCloser

	// preserveGuiPipes is set by Detach so the Reader's exit path leaves
	// FromEngine open for a follow-up session to keep delivering into.
	preserveGuiPipes atomic.Bool

	isError   atomic.Bool
	isRunning atomic.Bool
	startedOK atomic.Bool
	isUCI     atomic.Bool

	mu               sync.Mutex
	conn             net.Conn
	lastPositionLine string
	lastGoLine       string

	wg sync.WaitGroup
}

// New constructs a Session for ep, with fresh GUI-facing pipes. Start
// must be called to begin the Reader/Writer/Watchdog tasks.
func New(ep config.Endpoint, reporter Reporter) *Session {
	return NewWithPipes(ep, reporter, linepipe.New(), linepipe.New())
}

// NewWithPipes constructs a Session for ep that reads from and writes to
// caller-supplied pipes rather than fresh ones, so a reconnect can hand
// a new session the same GUI-facing pipes the old one used (SPEC_FULL.md
// §2.7: reconnect tears down the old transport without closing the
// GUI-facing pipes).
func NewWithPipes(ep config.Endpoint, reporter Reporter, toEngine, fromEngine *linepipe.Pipe) *Session {
	return &Session{
		ep:         ep,
		reporter:   reporter,
		selector:   transport.NewSelector(),
		ToEngine:   toEngine,
		FromEngine: fromEngine,
		gate:       iox.NewAsyncCloser(),
		shutdown:   iox.NewAsyncCloser(),
	}
}

// Start launches the Reader, Writer, and Watchdog tasks.
func (s *Session) Start(ctx context.Context) {
	s.wg.Add(3)
	go s.runReader(ctx)
	go s.runWriter(ctx)
	go s.runWatchdog(ctx)
}

// Shutdown requests termination: it marks shutdown_requested, closes the
// socket (unblocking Reader and Writer), attempts a best-effort quit,
// and closes both pipes (unblocking the GUI consumer). It swallows all
// I/O errors and waits for all three tasks to finish.
func (s *Session) Shutdown() {
	s.teardown(true)
}

// Detach tears down the transport and handshake exactly as Shutdown
// does — socket closed, best-effort quit, shutdown_requested set so the
// Reader/Writer's own error paths are suppressed — but leaves the
// GUI-facing pipes open, so a follow-up session can keep delivering into
// them (SPEC_FULL.md §2.7 reconnect).
func (s *Session) Detach() {
	s.teardown(false)
}

func (s *Session) teardown(closePipes bool) {
	if s.shutdown.IsClosed() {
		return
	}
	if !closePipes {
		s.preserveGuiPipes.Store(true)
	}
	s.shutdown.Close()

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn != nil {
		_, _ = io.WriteString(conn, "quit\n")
		_ = conn.Close()
	}

	if closePipes {
		s.ToEngine.Close()
		s.FromEngine.Close()
	}
	s.wg.Wait()
}

// LastPositionLine and LastGoLine return the most recent `position ...`
// and `go ...` lines the Writer forwarded, used by reconnect bookkeeping.
func (s *Session) LastPositionLine() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPositionLine, s.lastPositionLine != ""
}

func (s *Session) LastGoLine() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastGoLine, s.lastGoLine != ""
}

func (s *Session) IsRunning() bool { return s.isRunning.Load() }
func (s *Session) IsError() bool   { return s.isError.Load() }

func (s *Session) report(kind Kind, format string, args ...any) {
	s.isError.Store(true)
	if s.shutdown.IsClosed() {
		return // KindIoDuringShutdown: suppressed, never reported
	}
	msg := fmt.Sprintf(format, args...)
	logw.Errorf(context.Background(), "session: %s: %s", kind, msg)
	if s.reporter != nil {
		s.reporter.ReportError(msg)
	}
}

func (s *Session) runReader(ctx context.Context) {
	defer s.wg.Done()
	defer func() {
		if !s.preserveGuiPipes.Load() {
			s.FromEngine.Close()
		}
	}()

	conn, err := s.selector.Connect(ctx, s.ep)
	if err != nil {
		if !s.shutdown.IsClosed() {
			s.reportTransportFailure(err)
		}
		return
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	br := bufio.NewReader(conn)
	res, err := handshake.Run(ctx, br, conn, s.ep)
	if err != nil {
		if !s.shutdown.IsClosed() {
			he := err.(*handshake.Error)
			s.report(fromHandshakeKind(he.Kind), "%v", he.Err)
		}
		return
	}

	s.gate.Close()

	first := true
	if res.HasReinject {
		s.pushAndMarkRunning(res.ReinjectLine)
		first = false
	}

	for {
		raw, rerr := br.ReadString('\n')
		if rerr != nil && raw == "" {
			if s.shutdown.IsClosed() {
				return
			}
			switch {
			case rerr == io.EOF:
				s.report(KindRemoteClosed, "engine terminated")
			case isTimeout(rerr):
				s.report(KindTimeout, "read timed out")
			default:
				s.report(KindRemoteClosed, "%v", rerr)
			}
			return
		}

		line := strings.TrimRight(raw, "\r\n")
		if first && strings.HasPrefix(line, "AUTH_REQUIRED") {
			s.report(KindAuthRequiredMismatch, "auth required but not configured")
			return
		}
		first = false
		s.pushAndMarkRunning(line)
		if line == "uciok" {
			s.isUCI.Store(true)
		}

		if rerr != nil {
			if s.shutdown.IsClosed() {
				return
			}
			s.report(KindRemoteClosed, "engine terminated")
			return
		}
	}
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}

func (s *Session) pushAndMarkRunning(line string) {
	s.FromEngine.Push(line)
	s.isRunning.Store(true)
	s.startedOK.Store(true)
}

func (s *Session) reportTransportFailure(err error) {
	agg, ok := err.(*transport.AggregateError)
	if !ok || len(agg.Attempts) == 0 {
		s.report(KindTimeout, "%v", err)
		return
	}
	last := agg.Attempts[len(agg.Attempts)-1]
	kind := fromTransportKind(last.Kind)
	if agg.HasTimeout() {
		s.report(kind, "%v (alternate endpoints tried: %s)", err, strategyList(agg))
		return
	}
	s.report(kind, "%v", err)
}

func strategyList(agg *transport.AggregateError) string {
	names := make([]string, 0, len(agg.Attempts))
	for _, a := range agg.Attempts {
		names = append(names, a.Strategy)
	}
	return strings.Join(names, ", ")
}

func (s *Session) runWriter(ctx context.Context) {
	defer s.wg.Done()

	select {
	case <-s.gate.Closed():
	case <-s.shutdown.Closed():
		return
	}
	if s.shutdown.IsClosed() || s.isError.Load() {
		return
	}

	conn := func() net.Conn {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.conn
	}()

	for {
		if s.shutdown.IsClosed() {
			return
		}

		line := s.ToEngine.Read(writerPollInterval)
		if line == linepipe.Closed {
			if !s.shutdown.IsClosed() && !s.isError.Load() {
				s.report(KindRemoteClosed, "engine terminated")
			}
			return
		}
		if line == "" {
			continue // poll tick, no line ready: recheck shutdown_requested
		}

		s.mu.Lock()
		switch {
		case strings.HasPrefix(line, "position "):
			s.lastPositionLine = line
		case strings.HasPrefix(line, "go "):
			s.lastGoLine = line
		}
		s.mu.Unlock()

		logw.Debugf(ctx, "session: >> %v", line)
		if _, err := io.WriteString(conn, line+"\n"); err != nil {
			if !s.shutdown.IsClosed() && !s.isError.Load() {
				s.report(KindRemoteClosed, "engine terminated")
			}
			return
		}
	}
}

func (s *Session) runWatchdog(ctx context.Context) {
	defer s.wg.Done()

	timer := time.NewTimer(watchdogDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-s.shutdown.Closed():
		return
	}

	if s.shutdown.IsClosed() {
		return
	}
	if !s.isRunning.Load() || !s.isUCI.Load() {
		s.report(KindStartupProtocol, "uci protocol error")
	}
}
