package net

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialer_Unbound(t *testing.T) {
	d, err := Dialer("", 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, d.Timeout)
	assert.Nil(t, d.Control)
	assert.Nil(t, d.LocalAddr)
}

func TestInterfaceIPv4_UnknownInterface(t *testing.T) {
	_, err := InterfaceIPv4("does-not-exist0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does-not-exist0")
}

func TestLookupInterface_EmptyName(t *testing.T) {
	ifi, err := LookupInterface("")
	require.NoError(t, err)
	assert.Nil(t, ifi)
}

func TestMulticastListenConfig_AllowsSharedPort(t *testing.T) {
	lc := MulticastListenConfig("")
	ctx := context.Background()

	first, err := lc.ListenPacket(ctx, "udp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer first.Close()

	port := first.LocalAddr().(*net.UDPAddr).Port
	second, err := lc.ListenPacket(ctx, "udp4", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if err != nil {
		t.Skipf("platform does not allow shared UDP ports: %v", err)
	}
	_ = second.Close()
}
