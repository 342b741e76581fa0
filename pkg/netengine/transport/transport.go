package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/seekerror/logw"

	"github.com/vidar808/netengine/pkg/netengine/config"
)

const (
	mdnsConnectTimeout  = 2000 * time.Millisecond
	lanTimeout          = 2000 * time.Millisecond
	upnpTimeout         = 5000 * time.Millisecond
	relayConnectTimeout = 10000 * time.Millisecond
	relayIOTimeout      = 15000 * time.Millisecond
	retryTimeout        = 15000 * time.Millisecond

	retryInitialDelay = 1 * time.Second
	retryMaxDelay     = 30 * time.Second
	retryMaxAttempts  = 5
)

// Selector produces a ready-to-use byte stream for an Endpoint descriptor,
// trying each eligible strategy in the fixed order of spec.md §4.D and
// aggregating every failure along the way.
type Selector struct{}

// NewSelector returns a Selector. It holds no state; all behavior is a
// pure function of the Endpoint passed to Connect.
func NewSelector() *Selector {
	return &Selector{}
}

// Connect runs the strategy cascade and returns a connected, optionally
// TLS-wrapped, stream.
func (s *Selector) Connect(ctx context.Context, ep config.Endpoint) (net.Conn, error) {
	if err := ep.Valid(); err != nil {
		return nil, &AggregateError{Attempts: []*Error{{Strategy: "config", Kind: KindConfig, Err: err}}}
	}

	agg := &AggregateError{}
	tried := make(map[string]bool)

	relayAddr, relayConfigured := ep.RelayAddr()

	if mdnsName, ok := ep.MDNSServiceName.V(); ok && mdnsName != "" {
		if conn, err := s.tryMDNS(ctx, ep, mdnsName, tried); err == nil {
			return s.finish(ctx, ep, conn)
		} else {
			agg.Attempts = append(agg.Attempts, err.(*Error))
		}
	}

	if conn, err := s.tryLAN(ctx, ep, tried); err == nil {
		return s.finish(ctx, ep, conn)
	} else {
		agg.Attempts = append(agg.Attempts, err.(*Error))
	}

	if extAddr, ok := ep.ExternalAddr(); ok && extAddr != ep.Addr() {
		if conn, err := s.tryUPnP(ctx, extAddr, tried); err == nil {
			return s.finish(ctx, ep, conn)
		} else {
			agg.Attempts = append(agg.Attempts, err.(*Error))
		}
	}

	if relayConfigured {
		conn, err := s.tryRelay(ctx, ep, relayAddr, tried)
		if err == nil {
			// Relay connections carry their own server, not the config
			// endpoint's host, through to TLS; TLS is still honored if
			// configured, keyed off the config endpoint's fingerprint.
			return s.finish(ctx, ep, conn)
		}
		agg.Attempts = append(agg.Attempts, err.(*Error))
		// Per spec.md §4.D: relay configured and failed means backoff
		// retry of the unreachable direct host is skipped entirely.
		return nil, agg
	}

	conn, err := s.tryBackoff(ctx, ep, tried)
	if err == nil {
		return s.finish(ctx, ep, conn)
	}
	agg.Attempts = append(agg.Attempts, err.(*Error))
	return nil, agg
}

func (s *Selector) finish(ctx context.Context, ep config.Endpoint, conn net.Conn) (net.Conn, error) {
	if !ep.UseTLS {
		return conn, nil
	}
	tlsConn, err := wrapTLS(ctx, conn, ep.Host, ep.CertFingerprint)
	if err != nil {
		_ = conn.Close()
		return nil, &AggregateError{Attempts: []*Error{err.(*Error)}}
	}
	return tlsConn, nil
}

func (s *Selector) tryMDNS(ctx context.Context, ep config.Endpoint, name string, tried map[string]bool) (net.Conn, error) {
	addr, err := resolveMDNS(ctx, name)
	if err != nil {
		return nil, &Error{Strategy: "mdns", Kind: err.(*Error).Kind, Err: err}
	}
	if tried[addr] {
		return nil, &Error{Strategy: "mdns", Kind: KindConfig, Err: fmt.Errorf("address %s already attempted", addr)}
	}
	tried[addr] = true

	logw.Infof(ctx, "transport: mdns resolved %s, connecting", addr)
	conn, err := dialTCP(ctx, addr, mdnsConnectTimeout)
	if err != nil {
		return nil, &Error{Strategy: "mdns", Kind: err.(*Error).Kind, Err: err}
	}
	return conn, nil
}

func (s *Selector) tryLAN(ctx context.Context, ep config.Endpoint, tried map[string]bool) (net.Conn, error) {
	addr := ep.Addr()
	if tried[addr] {
		return nil, &Error{Strategy: "lan", Kind: KindConfig, Err: fmt.Errorf("address %s already attempted", addr)}
	}
	tried[addr] = true

	logw.Infof(ctx, "transport: dialing LAN %s", addr)
	conn, err := dialTCP(ctx, addr, lanTimeout)
	if err != nil {
		return nil, &Error{Strategy: "lan", Kind: err.(*Error).Kind, Err: err}
	}
	return conn, nil
}

func (s *Selector) tryUPnP(ctx context.Context, addr string, tried map[string]bool) (net.Conn, error) {
	if tried[addr] {
		return nil, &Error{Strategy: "upnp", Kind: KindConfig, Err: fmt.Errorf("address %s already attempted", addr)}
	}
	tried[addr] = true

	logw.Infof(ctx, "transport: dialing upnp external %s", addr)
	conn, err := dialTCP(ctx, addr, upnpTimeout)
	if err != nil {
		return nil, &Error{Strategy: "upnp", Kind: err.(*Error).Kind, Err: err}
	}
	return conn, nil
}

func (s *Selector) tryRelay(ctx context.Context, ep config.Endpoint, addr string, tried map[string]bool) (net.Conn, error) {
	relay, _ := ep.Relay.V()
	if tried[addr] {
		return nil, &Error{Strategy: "relay", Kind: KindConfig, Err: fmt.Errorf("address %s already attempted", addr)}
	}
	tried[addr] = true

	logw.Infof(ctx, "transport: dialing relay %s", addr)
	conn, err := dialTCP(ctx, addr, relayConnectTimeout)
	if err != nil {
		return nil, &Error{Strategy: "relay", Kind: err.(*Error).Kind, Err: err}
	}
	if err := relayHandshake(ctx, conn, relay.SessionID, relayIOTimeout); err != nil {
		_ = conn.Close()
		return nil, &Error{Strategy: "relay", Kind: err.(*Error).Kind, Err: err}
	}
	return conn, nil
}

func (s *Selector) tryBackoff(ctx context.Context, ep config.Endpoint, tried map[string]bool) (net.Conn, error) {
	addr := ep.Addr()
	delay := retryInitialDelay

	var lastErr error
	for attempt := 1; attempt <= retryMaxAttempts; attempt++ {
		logw.Infof(ctx, "transport: retry attempt %d/%d for %s", attempt, retryMaxAttempts, addr)
		conn, err := dialTCP(ctx, addr, retryTimeout)
		if err == nil {
			return conn, nil
		}
		lastErr = err

		if attempt == retryMaxAttempts {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, &Error{Strategy: "retry", Kind: KindTimeout, Err: ctx.Err()}
		}
		delay *= 2
		if delay > retryMaxDelay {
			delay = retryMaxDelay
		}
	}
	return nil, &Error{Strategy: "retry", Kind: lastErr.(*Error).Kind, Err: lastErr}
}
