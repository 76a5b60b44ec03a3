package speaker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.mp3":
			_, _ = w.Write([]byte("ID3 fake audio"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	engine := NewEngine(0)
	assert.Equal(t, 60*time.Second, engine.httpClient.Timeout)

	data, err := engine.download(context.Background(), server.URL+"/ok.mp3")
	require.NoError(t, err)
	assert.Equal(t, "ID3 fake audio", string(data))

	_, err = engine.download(context.Background(), server.URL+"/missing.mp3")
	assert.Error(t, err)
}

func TestOpen_RejectsUndecodableStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not an mp3"))
	}))
	defer server.Close()

	_, err := NewEngine(time.Second).Open(context.Background(), server.URL)
	assert.Error(t, err)
}
