package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/1.json":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"name":"Maple Court","description":"Four townhouses","image":"https://img.example/1.png"}`))
		case "/broken.json":
			_, _ = w.Write([]byte(`{"name":`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewFetcher(time.Second)

	m, err := f.Fetch(context.Background(), srv.URL+"/1.json")
	require.NoError(t, err)
	assert.Equal(t, "Maple Court", m.Name)
	assert.Equal(t, "Four townhouses", m.Description)
	assert.Equal(t, "https://img.example/1.png", m.Image)

	_, err = f.Fetch(context.Background(), srv.URL+"/missing.json")
	assert.Error(t, err)

	_, err = f.Fetch(context.Background(), srv.URL+"/broken.json")
	assert.Error(t, err)

	_, err = f.Fetch(context.Background(), "")
	assert.Error(t, err)
}
