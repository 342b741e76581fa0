// Package handshake implements the on-socket handshake state machine that
// runs after transport selection and before the UCI pipe takes over: the
// auth sub-protocol and, for multiplexed servers, the engine-selection
// sub-protocol.
package handshake

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/seekerror/logw"

	"github.com/vidar808/netengine/pkg/netengine/config"
)

// Kind classifies why the handshake failed.
type Kind int

const (
	KindAuthFail Kind = iota
	KindEngineUnavailable
	KindProtocol
)

func (k Kind) String() string {
	switch k {
	case KindAuthFail:
		return "auth_fail"
	case KindEngineUnavailable:
		return "engine_unavailable"
	case KindProtocol:
		return "startup_protocol"
	default:
		return "unknown"
	}
}

// Error is a classified handshake failure.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("handshake: %s: %v", e.Kind, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Result carries what the handshake learned that the UCI pipe still
// needs: in particular, a line read during the auth phase that turned out
// to belong to the engine's own banner (because the server did not
// require auth) and must not be discarded.
type Result struct {
	ReinjectLine string
	HasReinject  bool
}

// Run executes the auth and engine-selection sub-protocols over rw,
// reading through br (so that any line read for handshake purposes but
// not consumed by the handshake stays available to the caller via
// Result, and no byte is ever read twice). It returns once the handshake
// gate may be released, or a classified Error.
func Run(ctx context.Context, br *bufio.Reader, w io.Writer, ep config.Endpoint) (Result, error) {
	var res Result

	if err := runAuth(ctx, br, w, ep, &res); err != nil {
		return res, err
	}
	if err := runEngineSelect(ctx, br, w, ep); err != nil {
		return res, err
	}
	return res, nil
}

func runAuth(ctx context.Context, br *bufio.Reader, w io.Writer, ep config.Endpoint, res *Result) error {
	if ep.AuthMethod == config.AuthNone || (ep.AuthMethod == config.AuthToken && ep.AuthSecret == "") ||
		(ep.AuthMethod == config.AuthPSK && ep.AuthSecret == "") {
		return nil
	}

	line, err := readLine(br)
	if err != nil {
		return &Error{Kind: KindProtocol, Err: err}
	}

	if !strings.HasPrefix(line, "AUTH_REQUIRED") {
		// Server does not require auth for this session; this line is the
		// first engine output and must be re-injected, not discarded.
		res.ReinjectLine = line
		res.HasReinject = true
		return nil
	}

	var reply string
	switch ep.AuthMethod {
	case config.AuthToken:
		reply = fmt.Sprintf("AUTH %s\n", ep.AuthSecret)
	case config.AuthPSK:
		reply = fmt.Sprintf("PSK_AUTH %s\n", ep.AuthSecret)
	default:
		return &Error{Kind: KindAuthFail, Err: fmt.Errorf("server requires auth but none configured")}
	}

	logw.Debugf(ctx, "handshake: >> %s", strings.TrimSuffix(reply, "\n"))
	if _, err := io.WriteString(w, reply); err != nil {
		return &Error{Kind: KindAuthFail, Err: err}
	}

	ack, err := readLine(br)
	if err != nil {
		return &Error{Kind: KindAuthFail, Err: err}
	}
	if strings.TrimSpace(ack) != "AUTH_OK" {
		return &Error{Kind: KindAuthFail, Err: fmt.Errorf("auth rejected: %s", ack)}
	}
	return nil
}

func runEngineSelect(ctx context.Context, br *bufio.Reader, w io.Writer, ep config.Endpoint) error {
	name, ok := ep.SelectedEngine.V()
	if !ok || name == "" {
		return nil
	}

	logw.Debugf(ctx, "handshake: >> ENGINE_LIST")
	if _, err := io.WriteString(w, "ENGINE_LIST\n"); err != nil {
		return &Error{Kind: KindProtocol, Err: err}
	}

	var available []string
	for {
		line, err := readLine(br)
		if err != nil {
			return &Error{Kind: KindProtocol, Err: err}
		}
		if line == "ENGINES_END" {
			break
		}
		if strings.HasPrefix(line, "ENGINE ") {
			available = append(available, strings.TrimPrefix(line, "ENGINE "))
		}
	}

	if len(available) == 0 {
		return &Error{Kind: KindEngineUnavailable, Err: fmt.Errorf("server does not implement multiplexing")}
	}
	if !contains(available, name) {
		return &Error{Kind: KindEngineUnavailable, Err: fmt.Errorf("engine %q not available (have %v)", name, available)}
	}

	logw.Debugf(ctx, "handshake: >> SELECT_ENGINE %s", name)
	if _, err := io.WriteString(w, fmt.Sprintf("SELECT_ENGINE %s\n", name)); err != nil {
		return &Error{Kind: KindProtocol, Err: err}
	}

	ack, err := readLine(br)
	if err != nil {
		return &Error{Kind: KindProtocol, Err: err}
	}
	if strings.TrimSpace(ack) != "ENGINE_SELECTED" {
		return &Error{Kind: KindEngineUnavailable, Err: fmt.Errorf("engine selection rejected: %s", ack)}
	}
	return nil
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// readLine reads a single line, stripping the trailing \n and any \r.
func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
