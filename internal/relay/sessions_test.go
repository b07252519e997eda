package relay

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterListTerminate(t *testing.T) {
	reg := NewRegistry()
	clock := time.Unix(1_700_000_000, 0)
	reg.now = func() time.Time { clock = clock.Add(time.Second); return clock }

	tgt, err := MulticastTarget("239.1.1.1:5000", "")
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/udp/239.1.1.1:5000", nil)
	req.RemoteAddr = "[::ffff:192.168.1.20]:51000"
	req.Header.Set("User-Agent", "VLC/3.0")

	ctx1, cancel1 := context.WithCancel(context.Background())
	defer cancel1()
	first := reg.Register(req, tgt, cancel1)
	first.UpdateActivity(188)
	first.UpdateActivity(188)

	ctx2, cancel2 := context.WithCancel(context.Background())
	defer cancel2()
	reg.Register(httptest.NewRequest("GET", "/rtsp/x", nil), Target{Kind: KindRTSP, URL: "rtsp://x"}, cancel2)

	list := reg.List()
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, "192.168.1.20", list[0].ClientIP)
	assert.Equal(t, "VLC/3.0", list[0].UserAgent)
	assert.Equal(t, "multicast", list[0].Transport)
	assert.Equal(t, "239.1.1.1:5000", list[0].Target)
	assert.Equal(t, int64(376), list[0].BytesSent)
	assert.Equal(t, "rtsp", list[1].Transport)

	assert.True(t, reg.Terminate(first.ID))
	assert.ErrorIs(t, ctx1.Err(), context.Canceled)
	assert.NoError(t, ctx2.Err())
	assert.False(t, reg.Terminate(first.ID))

	assert.Equal(t, 1, reg.TerminateAll())
	assert.ErrorIs(t, ctx2.Err(), context.Canceled)
	assert.Empty(t, reg.List())
}

func TestRegistry_Unregister(t *testing.T) {
	reg := NewRegistry()
	s := reg.Register(httptest.NewRequest("GET", "/", nil), Target{Kind: KindRTSP, URL: "rtsp://x"}, nil)
	assert.Equal(t, s.StartedAt, s.LastActivity())
	reg.Unregister(s.ID)
	assert.Empty(t, reg.List())
	assert.False(t, reg.Terminate(s.ID))
}
