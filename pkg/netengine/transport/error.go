// Package transport implements the multi-strategy endpoint selector: mDNS
// discovery, direct LAN, UPnP external address, relay rendezvous, and
// backoff retry, tried in a fixed order with per-strategy timeouts, plus
// the TLS fingerprint-pinning wrap applied to whichever strategy wins.
package transport

import (
	"fmt"
	"strings"
)

// Kind classifies why a connection attempt failed, mirroring the kinds the
// session and facade layers surface to the host.
type Kind int

const (
	KindConfig Kind = iota
	KindUnknownHost
	KindRefused
	KindTimeout
	KindTlsHandshake
	KindRelayProtocol
	KindEngineUnavailable
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
	case KindRelayProtocol:
		return "relay_protocol"
	case KindEngineUnavailable:
		return "engine_unavailable"
	default:
		return "unknown"
	}
}

// Error is a single strategy's classified failure.
type Error struct {
	Strategy string
	Kind     Kind
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Strategy, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// AggregateError collects the per-strategy failures accumulated by the
// Selector before it gives up. Its Error() enumerates every attempt so the
// host can show a diagnostic naming each configured alternate endpoint.
type AggregateError struct {
	Attempts []*Error
}

func (a *AggregateError) Error() string {
	if len(a.Attempts) == 0 {
		return "transport: no strategy attempted"
	}
	var sb strings.Builder
	sb.WriteString("transport: all strategies failed:")
	for _, e := range a.Attempts {
		sb.WriteString(" [" + e.Error() + "]")
	}
	return sb.String()
}

// HasTimeout reports whether any attempt failed with KindTimeout, used by
// the session's transport-failure report to decide whether its diagnostic
// should enumerate the strategies attempted.
func (a *AggregateError) HasTimeout() bool {
	for _, e := range a.Attempts {
		if e.Kind == KindTimeout {
			return true
		}
	}
	return false
}
