package httpc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckHealth(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ok.Close()

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	assert.NoError(t, CheckHealth(context.Background(), ok.URL))
	assert.Error(t, CheckHealth(context.Background(), down.URL), "503")
	assert.Error(t, CheckHealth(context.Background(), "http://127.0.0.1:1/api/health"), "unreachable")
}

func TestDialer(t *testing.T) {
	d := Dialer()
	assert.Equal(t, DefaultHandshakeTimeout, d.HandshakeTimeout)
	assert.NotNil(t, d.NetDialContext)
}
