package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/mdns"
)

// mdnsServiceType is the fixed service type string used to discover
// chess-UCI servers on the local link.
const mdnsServiceType = "_netengine-uci._tcp"

const mdnsResolveTimeout = 1500 * time.Millisecond

// resolveMDNS discovers services of mdnsServiceType and returns the
// host:port of the one whose instance name equals name. Discovery stops
// at the 1500 ms cap regardless of whether an entry was found.
func resolveMDNS(ctx context.Context, name string) (string, error) {
	entries := make(chan *mdns.ServiceEntry, 16)
	params := mdns.DefaultParams(mdnsServiceType)
	params.Entries = entries
	params.Timeout = mdnsResolveTimeout
	params.DisableIPv6 = true

	done := make(chan error, 1)
	go func() { done <- mdns.Query(params) }()

	var found *mdns.ServiceEntry
	timer := time.NewTimer(mdnsResolveTimeout)
	defer timer.Stop()

loop:
	for {
		select {
		case e, ok := <-entries:
			if !ok {
				break loop
			}
			if e.Name == name || e.Host == name {
				found = e
				break loop
			}
		case <-done:
			break loop
		case <-timer.C:
			break loop
		case <-ctx.Done():
			return "", &Error{Kind: KindTimeout, Err: ctx.Err()}
		}
	}

	if found == nil {
		return "", &Error{Kind: KindTimeout, Err: fmt.Errorf("mdns: service %q not found within %s", name, mdnsResolveTimeout)}
	}
	return fmt.Sprintf("%s:%d", found.AddrV4, found.Port), nil
}
