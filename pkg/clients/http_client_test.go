package clients

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClient_PostJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "fundsledger", r.Header.Get("User-Agent"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"kind":"welcome"}`, string(body))
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`queued`))
	}))
	defer server.Close()

	status, body, err := NewHTTPClient().PostJSON(context.Background(), server.URL, map[string]string{"kind": "welcome"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, status)
	assert.Equal(t, "queued", string(body))
}

func TestHTTPClient_PostJSONHonoursContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, _, err := NewHTTPClient().PostJSON(ctx, server.URL, struct{}{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHTTPClient_PostJSONEncodeError(t *testing.T) {
	_, _, err := NewHTTPClient().PostJSON(context.Background(), "http://localhost", make(chan int))
	assert.Error(t, err)
}
