package config

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/seekerror/stdlib/pkg/lang"
)

// neteMagic is the first line of the NETE serialization.
const neteMagic = "NETE"

// Encode renders e as the 14-line NETE text serialization described in
// spec.md §6.2. Trailing absent fields are still emitted (as empty
// lines), since Encode always produces the full, canonical form; Parse
// is the side that tolerates a truncated input.
func (e Endpoint) Encode() string {
	tls := "notls"
	if e.UseTLS {
		tls = "tls"
	}

	authMethod := string(e.AuthMethod)
	if e.AuthMethod == AuthToken {
		// Line 7 is empty iff the method is token, per spec.md §6.2.
		authMethod = ""
	}

	relayHost, relayPort, relaySessionID := "", "0", ""
	if r, ok := e.Relay.V(); ok {
		relayHost = r.Host
		if r.Port != 0 {
			relayPort = strconv.Itoa(r.Port)
		}
		relaySessionID = r.SessionID
	}

	externalHost, _ := e.ExternalHost.V()
	mdnsService, _ := e.MDNSServiceName.V()
	selectedEngine, _ := e.SelectedEngine.V()

	// Line 5 (token) and line 8 (PSK key) share the same opaque
	// AuthSecret field but are mutually exclusive on the wire: only the
	// slot matching AuthMethod is populated.
	tokenSecret, pskSecret := "", ""
	switch e.AuthMethod {
	case AuthPSK:
		pskSecret = e.AuthSecret
	default:
		tokenSecret = e.AuthSecret
	}

	lines := []string{
		neteMagic,
		e.Host,
		strconv.Itoa(e.Port),
		tls,
		tokenSecret,
		e.CertFingerprint,
		authMethod,
		pskSecret,
		relayHost,
		relayPort,
		relaySessionID,
		externalHost,
		mdnsService,
		selectedEngine,
	}
	return strings.Join(lines, "\n")
}

// Parse reads a NETE endpoint descriptor from s. It is tolerant of fewer
// than 14 lines (trailing fields default to empty/absent) and trims
// trailing whitespace on every field.
func Parse(s string) (Endpoint, error) {
	var fields []string
	sc := bufio.NewScanner(strings.NewReader(s))
	for sc.Scan() {
		fields = append(fields, strings.TrimRight(sc.Text(), " \t\r\n"))
	}

	field := func(i int) string {
		if i < len(fields) {
			return fields[i]
		}
		return ""
	}

	if len(fields) == 0 || field(0) != neteMagic {
		return Endpoint{}, fmt.Errorf("config: not a NETE descriptor (missing magic)")
	}

	port, err := strconv.Atoi(field(2))
	if err != nil {
		return Endpoint{}, fmt.Errorf("config: invalid port %q: %w", field(2), err)
	}

	var e Endpoint
	e.Host = field(1)
	e.Port = port
	e.UseTLS = field(3) == "tls"
	e.AuthSecret = field(4)
	e.CertFingerprint = field(5)

	switch method := field(6); method {
	case "", string(AuthToken):
		e.AuthMethod = AuthToken
	case string(AuthNone):
		e.AuthMethod = AuthNone
	case string(AuthPSK):
		e.AuthMethod = AuthPSK
		e.AuthSecret = field(7) // PSK key lives on line 8
	default:
		return Endpoint{}, fmt.Errorf("config: unknown auth method %q", method)
	}

	relayHost := field(8)
	relayPort, _ := strconv.Atoi(field(9))
	relaySessionID := field(10)
	if relayHost != "" || relayPort != 0 || relaySessionID != "" {
		e.Relay = lang.Some(Relay{Host: relayHost, Port: relayPort, SessionID: relaySessionID})
	}

	if v := field(11); v != "" {
		e.ExternalHost = lang.Some(v)
	}
	if v := field(12); v != "" {
		e.MDNSServiceName = lang.Some(v)
	}
	if v := field(13); v != "" {
		e.SelectedEngine = lang.Some(v)
	}

	return e, nil
}
