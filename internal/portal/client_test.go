package portal

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, mock *MockServer, password string) *Client {
	t.Helper()
	return New(Config{
		AuthURL: mock.AuthURL(),
		Credentials: Credentials{
			UserID:   "user01",
			Password: password,
			MAC:      "00:11:22:33:44:55",
			IMEI:     "860000000000001",
			Address:  "10.1.2.3",
		},
		Timeout: 2 * time.Second,
		Breaker: NewCircuitBreaker(3, time.Minute),
		Nonce:   func() int { return 42 },
	})
}

func TestAuthenticate_Success(t *testing.T) {
	mock := NewMockServer("user01", "secret")
	defer mock.Close()

	sess, err := newTestClient(t, mock, "secret").Authenticate(context.Background())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(mock.URL, "http://"))
	assert.Equal(t, mock.URL, sess.BaseURL)
	assert.Equal(t, "42$ENCRY-TOKEN-0001$user01$860000000000001$10.1.2.3$00:11:22:33:44:55$$CTC", mock.LastAuthInfo())
	assert.Equal(t, 1, mock.Calls("/EDS/jsp/AuthenticationURL"))
	assert.Equal(t, 1, mock.Calls("/EPG/oauth/v2/authorize"))
	assert.Equal(t, 1, mock.Calls("/EPG/oauth/v2/token"))
}

func TestAuthenticate_WrongPasswordIsAuthError(t *testing.T) {
	mock := NewMockServer("user01", "secret")
	defer mock.Close()

	_, err := newTestClient(t, mock, "not-the-password").Authenticate(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuth)
	assert.NotErrorIs(t, err, ErrNetwork)

	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "token", perr.Operation)
	assert.Equal(t, http.StatusUnauthorized, perr.Status)
}

func TestAuthenticate_StepFailuresAreAuthErrors(t *testing.T) {
	steps := []string{
		"/EDS/jsp/AuthenticationURL",
		"/EPG/oauth/v2/authorize",
		"/EPG/oauth/v2/token",
	}
	for _, path := range steps {
		t.Run(path, func(t *testing.T) {
			mock := NewMockServer("user01", "secret")
			defer mock.Close()
			mock.SetFailure(path, http.StatusServiceUnavailable)

			_, err := newTestClient(t, mock, "secret").Authenticate(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrAuth)
		})
	}
}

func TestCheckLogin_LoginOnly(t *testing.T) {
	mock := NewMockServer("user01", "secret")
	defer mock.Close()

	c := newTestClient(t, mock, "secret")
	require.NoError(t, c.CheckLogin(context.Background()))
	assert.Equal(t, 1, mock.Calls("/EDS/jsp/AuthenticationURL"))
	assert.Zero(t, mock.Calls("/EPG/oauth/v2/authorize"))
	assert.Zero(t, mock.Calls("/EPG/oauth/v2/token"))

	mock.SetFailure("/EDS/jsp/AuthenticationURL", http.StatusServiceUnavailable)
	assert.ErrorIs(t, c.CheckLogin(context.Background()), ErrAuth)
}

func TestAuthenticate_UnreachablePortalIsNetworkError(t *testing.T) {
	mock := NewMockServer("user01", "secret")
	authURL := mock.AuthURL()
	mock.Close()

	c := New(Config{AuthURL: authURL, Credentials: Credentials{UserID: "user01"}, Timeout: time.Second})
	_, err := c.Authenticate(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.NotErrorIs(t, err, ErrAuth)
}

func TestAuthenticate_BreakerOpensOnNetworkFailures(t *testing.T) {
	mock := NewMockServer("user01", "secret")
	authURL := mock.AuthURL()
	mock.Close()

	c := New(Config{
		AuthURL:     authURL,
		Credentials: Credentials{UserID: "user01"},
		Timeout:     time.Second,
		Breaker:     NewCircuitBreaker(2, time.Hour),
	})
	for i := 0; i < 2; i++ {
		_, err := c.Authenticate(context.Background())
		require.ErrorIs(t, err, ErrNetwork)
	}

	_, err := c.Authenticate(context.Background())
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestBaseURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "http://183.59.160.61:8082/EPG/jsp/defaultHSVIP/en/go_authorization.jsp", want: "http://183.59.160.61:8082"},
		{in: "http://epg.example.net/EPG/jsp/x.jsp", want: "http://epg.example.net:80"},
		{in: "https://epg.example.net/EPG", want: "https://epg.example.net:443"},
		{in: "", wantErr: true},
		{in: "/relative/only", wantErr: true},
		{in: "ftp://host/path", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := baseURL(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChannelIcon(t *testing.T) {
	mock := NewMockServer("user01", "secret")
	defer mock.Close()
	mock.AddChannel(MockChannel{ID: "101", Name: "CCTV-1", URL: "rtsp://10.0.0.1/101"})

	c := newTestClient(t, mock, "secret")
	icon, err := c.ChannelIcon(context.Background(), 101)
	require.NoError(t, err)
	assert.Equal(t, MockPNG(), icon)

	_, err = c.ChannelIcon(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}
