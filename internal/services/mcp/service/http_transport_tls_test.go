package service

import (
	"context"
	"crypto/tls"
	"net"
	"sync/atomic"
	"testing"
	"time"
)

func TestStartUsesTLSListenerWhenConfigured(t *testing.T) {
	transport := NewHTTPTransport("127.0.0.1:0")
	transport.applyConfig(Config{
		TLSConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	})

	origListenTCP := listenTCP
	origNewTLSListener := newTLSListener
	defer func() {
		listenTCP = origListenTCP
		newTLSListener = origNewTLSListener
	}()

	var tcpCalled atomic.Bool
	listenDone := make(chan struct{}, 1)

	listenTCP = func(network, address string) (net.Listener, error) {
		tcpCalled.Store(true)
		return origListenTCP(network, address)
	}
	newTLSListener = func(l net.Listener, cfg *tls.Config) net.Listener {
		listenDone <- struct{}{}
		return origNewTLSListener(l, cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	startErr := make(chan error, 1)

	go func() {
		startErr <- transport.Start(ctx)
	}()

	select {
	case <-listenDone:
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("expected TLS listener to be used when TLS config is configured")
	}

	cancel()
	select {
	case err := <-startErr:
		if err != nil {
			t.Fatalf("expected Start to return nil on context cancel, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected Start to exit after cancel")
	}

	if !tcpCalled.Load() {
		t.Fatal("expected net listener to be used for HTTP transport start")
	}
}
