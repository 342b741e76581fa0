package config

import (
	"testing"

	"github.com/seekerror/stdlib/pkg/lang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeParseRoundTrip(t *testing.T) {
	e := Endpoint{
		Host:            "engine.example.com",
		Port:            9999,
		UseTLS:          true,
		AuthMethod:      AuthToken,
		AuthSecret:      "sekrit-token",
		CertFingerprint: "ab:cd:ef",
		Relay:           lang.Some(Relay{Host: "relay.example.com", Port: 4433, SessionID: "sess-1"}),
		ExternalHost:    lang.Some("203.0.113.5"),
		MDNSServiceName: lang.Some("_netengine._tcp"),
		SelectedEngine:  lang.Some("stockfish"),
	}

	got, err := Parse(e.Encode())
	require.NoError(t, err)
	assert.Equal(t, e, got)
}

func TestParseMinimal(t *testing.T) {
	e, err := Parse("NETE\nengine.local\n7777\nnotls")
	require.NoError(t, err)

	assert.Equal(t, "engine.local", e.Host)
	assert.Equal(t, 7777, e.Port)
	assert.False(t, e.UseTLS)
	assert.Equal(t, AuthToken, e.AuthMethod)
	_, ok := e.Relay.V()
	assert.False(t, ok)
	_, ok = e.ExternalHost.V()
	assert.False(t, ok)
}

func TestParseRejectsMissingMagic(t *testing.T) {
	_, err := Parse("bogus\nhost\n1234\nnotls")
	assert.Error(t, err)
}

func TestParseRejectsBadPort(t *testing.T) {
	_, err := Parse("NETE\nhost\nabc\nnotls")
	assert.Error(t, err)
}

func TestParsePSKAuth(t *testing.T) {
	e, err := Parse("NETE\nhost\n1234\ntls\n\n\npsk\nshared-key")
	require.NoError(t, err)
	assert.Equal(t, AuthPSK, e.AuthMethod)
	assert.Equal(t, "shared-key", e.AuthSecret)
}

func TestParseTrimsTrailingWhitespace(t *testing.T) {
	e, err := Parse("NETE\r\nhost  \r\n1234  \r\nnotls  \r\n")
	require.NoError(t, err)
	assert.Equal(t, "host", e.Host)
}

func TestEndpointValid(t *testing.T) {
	assert.Error(t, Endpoint{}.Valid())
	assert.Error(t, Endpoint{Host: "h", Port: 0}.Valid())
	assert.Error(t, Endpoint{Host: "h", Port: 70000}.Valid())
	assert.NoError(t, Endpoint{Host: "h", Port: 443}.Valid())
}

func TestEndpointAddrHelpers(t *testing.T) {
	e := Endpoint{Host: "h", Port: 443}
	assert.Equal(t, "h:443", e.Addr())

	_, ok := e.ExternalAddr()
	assert.False(t, ok)
	_, ok = e.RelayAddr()
	assert.False(t, ok)

	e.ExternalHost = lang.Some("ext")
	addr, ok := e.ExternalAddr()
	assert.True(t, ok)
	assert.Equal(t, "ext:443", addr)

	e.Relay = lang.Some(Relay{Host: "r", Port: 1, SessionID: "s"})
	addr, ok = e.RelayAddr()
	assert.True(t, ok)
	assert.Equal(t, "r:1", addr)
}
