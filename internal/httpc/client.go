// Package httpc holds the shared network client settings for padtrack:
// an HTTP client for probing a running tracker and a websocket dialer for
// frame bridges. Use these instead of the zero-value clients so timeouts
// are always set.
package httpc

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Default timeouts for network operations.
const (
	DefaultTimeout          = 5 * time.Second
	DefaultConnectTimeout   = 3 * time.Second
	DefaultKeepAlive        = 30 * time.Second
	DefaultHandshakeTimeout = 10 * time.Second
)

func netDialer() *net.Dialer {
	return &net.Dialer{
		Timeout:   DefaultConnectTimeout,
		KeepAlive: DefaultKeepAlive,
	}
}

// Client is the shared HTTP client.
var Client = &http.Client{
	Timeout: DefaultTimeout,
	Transport: &http.Transport{
		DialContext:         netDialer().DialContext,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,
	},
}

// Dialer returns a websocket dialer with connect and handshake timeouts.
func Dialer() *websocket.Dialer {
	return &websocket.Dialer{
		NetDialContext:   netDialer().DialContext,
		HandshakeTimeout: DefaultHandshakeTimeout,
		ReadBufferSize:   64 * 1024,
	}
}

// CheckHealth issues a GET to url and fails unless it answers 200.
func CheckHealth(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("httpc: %s returned %s", url, resp.Status)
	}
	return nil
}
