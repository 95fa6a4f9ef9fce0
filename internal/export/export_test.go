package export

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"studio/server/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilenames(t *testing.T) {
	now := time.Now()
	assert.Equal(t, "shadow-empire-42.jpg", Filename(model.NewMediaItem(42, model.VariantImage, "u", "p", now)))
	assert.Equal(t, "shadow-empire-video-42.mp4", Filename(model.NewMediaItem(42, model.VariantVideo, "u", "p", now)))
	assert.Equal(t, "shadow-empire-text-42.txt", Filename(model.NewTextItem(42, "c", "t", "blog", "casual", now)))
}

func TestOpenText(t *testing.T) {
	a, err := NewExporter(0).Open(context.Background(), model.NewTextItem(7, "hola mundo", "t", "blog", "casual", time.Now()))
	require.NoError(t, err)
	defer a.Close()
	body, err := io.ReadAll(a.Body)
	require.NoError(t, err)
	assert.Equal(t, "hola mundo", string(body))
	assert.Equal(t, "text/plain; charset=utf-8", a.ContentType)
}

func TestOpenMediaStreamsUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("PNGDATA"))
	}))
	defer srv.Close()

	e := newExporter(time.Second, false)
	a, err := e.Open(context.Background(), model.NewMediaItem(9, model.VariantImage, srv.URL+"/x.png", "p", time.Now()))
	require.NoError(t, err)
	defer a.Close()
	body, _ := io.ReadAll(a.Body)
	assert.Equal(t, "PNGDATA", string(body))
	assert.Equal(t, "image/png", a.ContentType)
	assert.Equal(t, "shadow-empire-9.jpg", a.Filename)

	_, err = e.Open(context.Background(), model.NewMediaItem(9, model.VariantImage, srv.URL+"/missing.png", "p", time.Now()))
	assert.ErrorIs(t, err, ErrUpstream)

	_, err = e.Open(context.Background(), model.NewMediaItem(9, model.VariantVideo, "", "p", time.Now()))
	assert.ErrorIs(t, err, ErrNoURL)
}

func TestOpenRefusesInternalDestinations(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("SECRET"))
	}))
	defer srv.Close()

	e := NewExporter(time.Second)
	for _, raw := range []string{
		srv.URL + "/x.png",
		"http://169.254.169.254/latest/meta-data/",
		"http://10.0.0.8/render.png",
		"http://[::1]:9/render.png",
		"file:///etc/passwd",
		"gopher://example.com/",
	} {
		_, err := e.Open(context.Background(), model.NewMediaItem(1, model.VariantImage, raw, "p", time.Now()))
		assert.ErrorIs(t, err, ErrRefusedDestination, raw)
	}
	assert.Zero(t, hits.Load())
}

func TestRefuseInternal(t *testing.T) {
	for addr, refused := range map[string]bool{
		"127.0.0.1:80":          true,
		"10.1.2.3:443":          true,
		"192.168.1.1:80":        true,
		"169.254.169.254:80":    true,
		"[::1]:80":              true,
		"[fe80::1]:80":          true,
		"0.0.0.0:80":            true,
		"[::ffff:127.0.0.1]:80": true,
		"93.184.216.34:443":     false,
		"[2606:4700::1111]:443": false,
	} {
		err := refuseInternal("tcp", addr, nil)
		if refused {
			assert.ErrorIs(t, err, ErrRefusedDestination, addr)
		} else {
			assert.NoError(t, err, addr)
		}
	}
}
