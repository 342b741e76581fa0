// Package session implements the UCI pipe (Component F): the Reader and
// Writer tasks that carry line-delimited text between a GUI-facing pair
// of Line Pipes and the remote engine's socket, plus the startup
// watchdog, gated by a one-shot handshake release.
package session

import (
	"fmt"

	"github.com/vidar808/netengine/pkg/netengine/handshake"
	"github.com/vidar808/netengine/pkg/netengine/transport"
)

// Kind is the unified failure classification surfaced to the host,
// spanning every source named in spec.md §7.
type Kind int

const (
	KindConfig Kind = iota
	KindUnknownHost
	KindRefused
	KindTimeout
	KindTlsHandshake
	KindAuthFail
	KindAuthRequiredMismatch
	KindEngineUnavailable
	KindRemoteClosed
	KindStartupProtocol
	KindIoDuringShutdown
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindUnknownHost:
		return "unknown_host"
	case KindRefused:
		return "refused"
	case KindTimeout:
		return "timeout"
	case KindTlsHandshake:
		return "tls_handshake"
	case KindAuthFail:
		return "auth_fail"
	case KindAuthRequiredMismatch:
		return "auth_required_mismatch"
	case KindEngineUnavailable:
		return "engine_unavailable"
	case KindRemoteClosed:
		return "remote_closed"
	case KindStartupProtocol:
		return "startup_protocol"
	case KindIoDuringShutdown:
		return "io_during_shutdown"
	default:
		return "unknown"
	}
}

// Error is a classified session failure.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("session: %s: %v", e.Kind, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// fromTransportKind maps a transport.Kind into the unified Kind space.
func fromTransportKind(k transport.Kind) Kind {
	switch k {
	case transport.KindConfig:
		return KindConfig
	case transport.KindUnknownHost:
		return KindUnknownHost
	case transport.KindRefused:
		return KindRefused
	case transport.KindTimeout:
		return KindTimeout
	case transport.KindTlsHandshake:
		return KindTlsHandshake
	case transport.KindRelayProtocol:
		return KindRefused
	case transport.KindEngineUnavailable:
		return KindEngineUnavailable
	default:
		return KindRefused
	}
}

// fromHandshakeKind maps a handshake.Kind into the unified Kind space.
func fromHandshakeKind(k handshake.Kind) Kind {
	switch k {
	case handshake.KindAuthFail:
		return KindAuthFail
	case handshake.KindEngineUnavailable:
		return KindEngineUnavailable
	default:
		return KindStartupProtocol
	}
}
