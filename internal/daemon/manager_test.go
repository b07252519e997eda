// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/iptvproxy/internal/log"
)

func testDeps(h http.Handler) Deps {
	return Deps{Logger: log.WithComponent("test"), APIHandler: h}
}

func startManager(t *testing.T, mgr Manager) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mgr.Start(ctx) }()
	select {
	case <-mgr.Ready():
	case err := <-done:
		cancel()
		t.Fatalf("start failed: %v", err)
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("manager never became ready")
	}
	return cancel, done
}

func TestNewManager_Validation(t *testing.T) {
	_, err := NewManager(DefaultServerConfig("127.0.0.1:0"), Deps{Logger: zerolog.Nop(), APIHandler: http.NotFoundHandler()})
	assert.ErrorIs(t, err, ErrMissingLogger)

	_, err = NewManager(DefaultServerConfig("127.0.0.1:0"), Deps{Logger: log.WithComponent("test")})
	assert.ErrorIs(t, err, ErrMissingAPIHandler)
}

func TestManager_ServesAndRunsHooksLIFO(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	mgr, err := NewManager(DefaultServerConfig("127.0.0.1:0"), testDeps(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "pong")
	})))
	require.NoError(t, err)

	var mu sync.Mutex
	var order []string
	for _, name := range []string{"cache", "mapping", "scheduler"} {
		mgr.RegisterShutdownHook(name, func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		})
	}

	cancel, done := startManager(t, mgr)

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + mgr.APIAddr().String() + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "pong", string(body))

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, []string{"scheduler", "mapping", "cache"}, order)
}

func TestManager_ShutdownEndsStreams(t *testing.T) {
	streaming := make(chan struct{})
	mgr, err := NewManager(DefaultServerConfig("127.0.0.1:0"), testDeps(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		close(streaming)
		<-r.Context().Done()
	})))
	require.NoError(t, err)
	cancel, done := startManager(t, mgr)

	go func() {
		resp, err := http.Get("http://" + mgr.APIAddr().String() + "/stream")
		if err == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}
	}()
	<-streaming

	start := time.Now()
	cancel()
	require.NoError(t, <-done)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestManager_HookErrorsAreJoined(t *testing.T) {
	mgr, err := NewManager(DefaultServerConfig("127.0.0.1:0"), testDeps(http.NotFoundHandler()))
	require.NoError(t, err)
	boom := errors.New("boom")
	mgr.RegisterShutdownHook("bad", func(context.Context) error { return boom })

	cancel, done := startManager(t, mgr)
	cancel()
	err = <-done
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestManager_BindFailureRunsHooks(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	mgr, err := NewManager(DefaultServerConfig(ln.Addr().String()), testDeps(http.NotFoundHandler()))
	require.NoError(t, err)
	closed := false
	mgr.RegisterShutdownHook("store", func(context.Context) error { closed = true; return nil })

	err = mgr.Start(context.Background())
	require.Error(t, err)
	assert.True(t, closed)
}

func TestManager_MetricsListener(t *testing.T) {
	deps := testDeps(http.NotFoundHandler())
	deps.MetricsAddr = "127.0.0.1:0"
	deps.MetricsHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "metrics")
	})
	mgr, err := NewManager(DefaultServerConfig("127.0.0.1:0"), deps)
	require.NoError(t, err)
	cancel, done := startManager(t, mgr)
	cancel()
	require.NoError(t, <-done)
}

func TestManager_ShutdownBeforeStart(t *testing.T) {
	mgr, err := NewManager(DefaultServerConfig("127.0.0.1:0"), testDeps(http.NotFoundHandler()))
	require.NoError(t, err)
	assert.ErrorIs(t, mgr.Shutdown(context.Background()), ErrManagerNotStarted)
}
