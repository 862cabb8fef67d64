package api

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jobin06/EV-Fleet-MVP/pkg/config"
	"github.com/Jobin06/EV-Fleet-MVP/pkg/logger"
)

func TestServer_StartAndShutdown(t *testing.T) {
	cfg := &config.Config{Port: "0", Env: "development"}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})

	server := New(cfg, logger.Nop(), handler)
	closed := make(chan struct{})
	server.OnShutdown(func() { close(closed) })

	require.NoError(t, server.Listen())
	_, port, err := net.SplitHostPort(server.Addr())
	require.NoError(t, err)
	assert.NotEqual(t, "0", port)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	resp, err := http.Get("http://127.0.0.1:" + port + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, server.Shutdown(ctx))

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}

	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("shutdown hook did not run")
	}
}

func TestServer_ListenPortInUse(t *testing.T) {
	busy, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer busy.Close()
	_, port, _ := net.SplitHostPort(busy.Addr().String())

	server := New(&config.Config{Port: port}, logger.Nop(), http.NotFoundHandler())
	assert.Error(t, server.Start())
}
