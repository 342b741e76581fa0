// Package config models the endpoint descriptor the network engine core
// receives as input (host/port, TLS and auth posture, relay/mDNS/UPnP/
// multiplex hints), and its "NETE" text serialization.
package config

import (
	"fmt"

	"github.com/seekerror/stdlib/pkg/lang"
)

// AuthMethod identifies how the client authenticates to the remote
// engine server.
type AuthMethod string

const (
	AuthNone  AuthMethod = "none"
	AuthToken AuthMethod = "token"
	AuthPSK   AuthMethod = "psk"
)

// Relay is the (host, port, session_id) tuple identifying a rendezvous
// relay session. All three fields must be non-empty for a Relay to be
// considered present.
type Relay struct {
	Host      string
	Port      int
	SessionID string
}

// Present reports whether all three Relay fields are populated.
func (r Relay) Present() bool {
	return r.Host != "" && r.Port != 0 && r.SessionID != ""
}

// Endpoint describes how to reach a remote chess engine.
type Endpoint struct {
	Host string
	Port int

	UseTLS          bool
	AuthMethod      AuthMethod
	AuthSecret      string // token (AuthToken) or key (AuthPSK); empty iff AuthNone
	CertFingerprint string // colon-hex SHA-256; empty = unpinned

	Relay lang.Optional[Relay]

	ExternalHost    lang.Optional[string]
	MDNSServiceName lang.Optional[string]
	SelectedEngine  lang.Optional[string]
}

// Valid reports whether the minimal required fields (host, port) are
// present and well-formed. Strategies that need more (relay, mDNS,
// external host) check their own preconditions independently; an
// Endpoint missing those is not itself invalid, merely ineligible for
// those strategies.
func (e Endpoint) Valid() error {
	if e.Host == "" {
		return fmt.Errorf("config: host is required")
	}
	if e.Port < 1 || e.Port > 65535 {
		return fmt.Errorf("config: port %d out of range 1..65535", e.Port)
	}
	return nil
}

// Addr returns the "host:port" form of the primary (LAN) target.
func (e Endpoint) Addr() string {
	return fmt.Sprintf("%s:%d", e.Host, e.Port)
}

// ExternalAddr returns the "host:port" form of the UPnP-exposed external
// target, and whether ExternalHost is present.
func (e Endpoint) ExternalAddr() (string, bool) {
	host, ok := e.ExternalHost.V()
	if !ok || host == "" {
		return "", false
	}
	return fmt.Sprintf("%s:%d", host, e.Port), true
}

// RelayAddr returns the "host:port" form of the relay target, and
// whether a full Relay tuple is present.
func (e Endpoint) RelayAddr() (string, bool) {
	relay, ok := e.Relay.V()
	if !ok || !relay.Present() {
		return "", false
	}
	return fmt.Sprintf("%s:%d", relay.Host, relay.Port), true
}
