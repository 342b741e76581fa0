package handshake

import (
	"bufio"
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/seekerror/stdlib/pkg/lang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidar808/netengine/pkg/netengine/config"
)

// pipePair returns two connected, in-memory net.Conns.
func pipePair() (net.Conn, net.Conn) {
	return net.Pipe()
}

func TestNoAuthNoSelection(t *testing.T) {
	client, server := pipePair()
	defer client.Close()
	defer server.Close()

	go func() {
		server.Write([]byte("id name StubEngine\n"))
	}()

	br := bufio.NewReader(client)
	res, err := Run(context.Background(), br, client, config.Endpoint{AuthMethod: config.AuthNone})
	require.NoError(t, err)
	assert.False(t, res.HasReinject)
	assert.Equal(t, "", res.ReinjectLine)
}

func TestTokenAuthSuccess(t *testing.T) {
	client, server := pipePair()
	defer client.Close()
	defer server.Close()

	go func() {
		sr := bufio.NewReader(server)
		server.Write([]byte("AUTH_REQUIRED\n"))
		line, _ := sr.ReadString('\n')
		if line == "AUTH abc\n" {
			server.Write([]byte("AUTH_OK\n"))
		} else {
			server.Write([]byte("AUTH_FAIL\n"))
		}
	}()

	br := bufio.NewReader(client)
	ep := config.Endpoint{AuthMethod: config.AuthToken, AuthSecret: "abc"}
	res, err := Run(context.Background(), br, client, ep)
	require.NoError(t, err)
	assert.False(t, res.HasReinject)
}

func TestTokenAuthFailure(t *testing.T) {
	client, server := pipePair()
	defer client.Close()
	defer server.Close()

	go func() {
		sr := bufio.NewReader(server)
		server.Write([]byte("AUTH_REQUIRED\n"))
		sr.ReadString('\n')
		server.Write([]byte("NOPE\n"))
	}()

	br := bufio.NewReader(client)
	ep := config.Endpoint{AuthMethod: config.AuthToken, AuthSecret: "abc"}
	_, err := Run(context.Background(), br, client, ep)
	require.Error(t, err)

	he, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindAuthFail, he.Kind)
}

func TestPSKAuth(t *testing.T) {
	client, server := pipePair()
	defer client.Close()
	defer server.Close()

	go func() {
		sr := bufio.NewReader(server)
		server.Write([]byte("AUTH_REQUIRED\n"))
		line, _ := sr.ReadString('\n')
		if line == "PSK_AUTH shared\n" {
			server.Write([]byte("AUTH_OK\n"))
		}
	}()

	br := bufio.NewReader(client)
	ep := config.Endpoint{AuthMethod: config.AuthPSK, AuthSecret: "shared"}
	_, err := Run(context.Background(), br, client, ep)
	require.NoError(t, err)
}

func TestEngineSelectionSuccess(t *testing.T) {
	client, server := pipePair()
	defer client.Close()
	defer server.Close()

	go func() {
		sr := bufio.NewReader(server)
		line, _ := sr.ReadString('\n')
		if line != "ENGINE_LIST\n" {
			return
		}
		server.Write([]byte("ENGINE Stockfish\nENGINE Dragon\nENGINE Maia\nENGINES_END\n"))
		line, _ = sr.ReadString('\n')
		if line == "SELECT_ENGINE Dragon\n" {
			server.Write([]byte("ENGINE_SELECTED\n"))
		}
	}()

	br := bufio.NewReader(client)
	ep := config.Endpoint{AuthMethod: config.AuthNone, SelectedEngine: lang.Some("Dragon")}
	_, err := Run(context.Background(), br, client, ep)
	require.NoError(t, err)
}

func TestEngineSelectionUnavailable(t *testing.T) {
	client, server := pipePair()
	defer client.Close()
	defer server.Close()

	go func() {
		sr := bufio.NewReader(server)
		sr.ReadString('\n')
		server.Write([]byte("ENGINE Stockfish\nENGINE Maia\nENGINES_END\n"))
	}()

	br := bufio.NewReader(client)
	ep := config.Endpoint{AuthMethod: config.AuthNone, SelectedEngine: lang.Some("Dragon")}
	_, err := Run(context.Background(), br, client, ep)
	require.Error(t, err)

	he, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindEngineUnavailable, he.Kind)
}

func TestEngineSelectionNoMultiplexSupport(t *testing.T) {
	client, server := pipePair()
	defer client.Close()
	defer server.Close()

	go func() {
		sr := bufio.NewReader(server)
		sr.ReadString('\n')
		server.Write([]byte("ENGINES_END\n"))
	}()

	br := bufio.NewReader(client)
	ep := config.Endpoint{AuthMethod: config.AuthNone, SelectedEngine: lang.Some("Dragon")}
	_, err := Run(context.Background(), br, client, ep)
	require.Error(t, err)
	he, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindEngineUnavailable, he.Kind)
}

func TestReadLineTrimsCR(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("hello\r\n")
	line, err := readLine(bufio.NewReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, "hello", line)
}

func TestRunRespectsTimeoutViaDeadline(t *testing.T) {
	client, server := pipePair()
	defer server.Close()

	_ = client.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	br := bufio.NewReader(client)
	ep := config.Endpoint{AuthMethod: config.AuthToken, AuthSecret: "abc"}
	_, err := Run(context.Background(), br, client, ep)
	require.Error(t, err)
	client.Close()
}
