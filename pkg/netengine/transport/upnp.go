package transport

import (
	"context"
	"fmt"

	"github.com/huin/goupnp/dcps/internetgateway2"
)

// ExternalAddrFromUPnP queries the local IGD gateway for its reported
// external IP address, so a caller can re-validate a configured
// external_host against the gateway's current view before reusing it
// (the strategy itself still dials the configured external_host
// directly per spec.md §4.D; this helper backs facade's reconnect
// bookkeeping, SPEC_FULL.md §2.7, which re-validates external_host
// before reusing it across a reconnect).
func ExternalAddrFromUPnP(ctx context.Context) (string, error) {
	type result struct {
		ip  string
		err error
	}
	done := make(chan result, 1)

	go func() {
		clients, _, err := internetgateway2.NewWANIPConnection1Clients()
		if err != nil {
			done <- result{err: fmt.Errorf("upnp: discover gateway: %w", err)}
			return
		}
		if len(clients) == 0 {
			done <- result{err: fmt.Errorf("upnp: no IGD gateway found")}
			return
		}
		ip, err := clients[0].GetExternalIPAddress()
		if err != nil {
			done <- result{err: fmt.Errorf("upnp: query external address: %w", err)}
			return
		}
		done <- result{ip: ip}
	}()

	select {
	case <-ctx.Done():
		return "", &Error{Kind: KindTimeout, Err: ctx.Err()}
	case r := <-done:
		if r.err != nil {
			return "", &Error{Kind: KindTimeout, Err: r.err}
		}
		return r.ip, nil
	}
}
