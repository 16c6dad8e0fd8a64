package main

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeDrainsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	started := make(chan struct{})
	release := make(chan struct{})
	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		io.WriteString(w, "done")
	})}

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() {
		served <- serve(ctx, srv, func() error { return srv.Serve(ln) })
	}()

	body := make(chan string, 1)
	go func() {
		res, err := http.Get("http://" + ln.Addr().String())
		if err != nil {
			body <- err.Error()
			return
		}
		defer res.Body.Close()
		b, _ := io.ReadAll(res.Body)
		body <- string(b)
	}()

	<-started
	cancel()

	select {
	case <-served:
		t.Fatal("serve returned with a request in flight")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	assert.Equal(t, "done", <-body)

	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after shutdown")
	}
}

func TestServeReturnsListenError(t *testing.T) {
	boom := errors.New("address in use")
	err := serve(context.Background(), &http.Server{}, func() error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestServeTreatsClosedAsNormal(t *testing.T) {
	err := serve(context.Background(), &http.Server{}, func() error { return http.ErrServerClosed })
	assert.NoError(t, err)
}
