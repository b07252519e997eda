package portal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuideWindow(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	begin, end := GuideWindow(now)
	assert.Equal(t, int64(1_700_000_000_000-2*86_400_000), begin)
	assert.Equal(t, int64(1_700_000_000_000+5*86_400_000), end)
}

func TestFetchGuide_PartialFailure(t *testing.T) {
	mock := NewMockServer("user01", "secret")
	defer mock.Close()
	for _, id := range []string{"1", "2", "3"} {
		mock.AddChannel(MockChannel{ID: id, Name: "Channel " + id, URL: "rtsp://h/" + id})
	}
	mock.AddProgram("1", "News", 1000, 2000)
	mock.AddProgram("1", "Weather", 2000, 2600)
	mock.AddProgram("1", "Inverted", 5000, 4000)
	mock.AddProgram("3", "Film", 3000, 9000)
	mock.FailGuide("2")

	c := newTestClient(t, mock, "secret")
	channels, err := c.FetchChannels(context.Background(), Endpoint{}, true)
	require.NoError(t, err)
	require.Len(t, channels, 3)

	assert.Equal(t, uint64(1), channels[0].ID)
	assert.Equal(t, []Program{
		{Start: 1000, Stop: 2000, Title: "News", Desc: "News"},
		{Start: 2000, Stop: 2600, Title: "Weather", Desc: "Weather"},
	}, channels[0].Programs)

	assert.Equal(t, uint64(2), channels[1].ID)
	assert.Empty(t, channels[1].Programs)

	assert.Equal(t, uint64(3), channels[2].ID)
	assert.Len(t, channels[2].Programs, 1)
}

func TestFetchGuide_BoundedConcurrency(t *testing.T) {
	mock := NewMockServer("user01", "secret")
	defer mock.Close()
	for _, id := range []string{"1", "2", "3", "4", "5", "6"} {
		mock.AddChannel(MockChannel{ID: id, Name: id, URL: "rtsp://h/" + id})
	}
	mock.SetDelay("/EPG/jsp/iptvsnmv3/en/play/ajax/_ajax_getPlaybillList.jsp", 50*time.Millisecond)

	c := newTestClient(t, mock, "secret")
	c.cfg.GuideConcurrency = 2

	start := time.Now()
	channels, err := c.FetchChannels(context.Background(), Endpoint{}, true)
	require.NoError(t, err)
	assert.Len(t, channels, 6)
	// Six requests, two at a time, 50ms each.
	assert.GreaterOrEqual(t, time.Since(start), 140*time.Millisecond)
	assert.Equal(t, 6, mock.Calls("/EPG/jsp/iptvsnmv3/en/play/ajax/_ajax_getPlaybillList.jsp"))
}

func TestFetchChannels_WithoutGuide(t *testing.T) {
	mock := NewMockServer("user01", "secret")
	defer mock.Close()
	mock.AddChannel(MockChannel{ID: "1", Name: "A", URL: "rtsp://h/1"})

	c := newTestClient(t, mock, "secret")
	channels, err := c.FetchChannels(context.Background(), Endpoint{}, false)
	require.NoError(t, err)
	require.Len(t, channels, 1)
	assert.Zero(t, mock.Calls("/EPG/jsp/iptvsnmv3/en/play/ajax/_ajax_getPlaybillList.jsp"))
}

func TestFetchChannels_AuthFailureIsFatal(t *testing.T) {
	mock := NewMockServer("user01", "secret")
	defer mock.Close()

	_, err := newTestClient(t, mock, "bad").FetchChannels(context.Background(), Endpoint{}, true)
	assert.ErrorIs(t, err, ErrAuth)
}
