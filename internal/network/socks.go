// Package network provides outbound dialing for snapshot sinks behind a proxy.
package network

import (
	"context"
	"fmt"
	"net"

	"golang.org/x/net/proxy"

	"ondo/internal/config"
)

// ContextDialFunc matches the Dialer hook of network clients such as go-redis.
type ContextDialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// NewSOCKS5Dialer creates a SOCKS5 proxy dialer.
func NewSOCKS5Dialer(cfg config.SOCKSConfig) (proxy.Dialer, error) {
	addr := net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port))
	dialer, err := proxy.SOCKS5("tcp", addr, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer for %s: %w", addr, err)
	}
	return dialer, nil
}

// DialContext returns a context-aware dial function through the configured
// proxy, or nil when no proxy is configured.
func DialContext(cfg config.SOCKSConfig) (ContextDialFunc, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	dialer, err := NewSOCKS5Dialer(cfg)
	if err != nil {
		return nil, err
	}
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		return cd.DialContext, nil
	}
	return func(_ context.Context, network, addr string) (net.Conn, error) {
		return dialer.Dial(network, addr)
	}, nil
}
