package network

import (
	"context"
	"net"
	"testing"
	"time"

	"ondo/internal/config"
)

func TestNewSOCKS5Dialer(t *testing.T) {
	dialer, err := NewSOCKS5Dialer(config.SOCKSConfig{Host: "127.0.0.1", Port: 1080})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dialer == nil {
		t.Fatal("expected non-nil dialer")
	}
}

func TestDialContext_Disabled(t *testing.T) {
	for _, cfg := range []config.SOCKSConfig{{}, {Host: "proxy"}, {Port: 1080}} {
		fn, err := DialContext(cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if fn != nil {
			t.Errorf("expected nil dial func for %+v", cfg)
		}
	}
}

func TestDialContext_UnreachableProxy(t *testing.T) {
	// Reserve a port, then close it so nothing is listening.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	fn, err := DialContext(config.SOCKSConfig{Host: "127.0.0.1", Port: port})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fn == nil {
		t.Fatal("expected dial func for configured proxy")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if conn, err := fn(ctx, "tcp", "10.0.0.1:6379"); err == nil {
		conn.Close()
		t.Fatal("expected dial through a dead proxy to fail")
	}
}
