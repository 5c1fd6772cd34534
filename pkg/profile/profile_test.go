package profile

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T, handler http.HandlerFunc) *Resolver {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewResolver(srv.URL, 5*time.Second)
}

func TestResolve(t *testing.T) {
	resolver := newTestResolver(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/profile/vitalik.eth", r.URL.Path)
		w.Write([]byte(`[
			{
				"address": "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045",
				"identity": "vitalik.eth",
				"platform": "ens",
				"displayName": "Vitalik",
				"avatar": "https://cdn.example/avatar.png",
				"description": "ethereum",
				"links": {
					"website": {"link": "https://vitalik.ca", "handle": "vitalik.ca"}
				}
			},
			{
				"address": "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045",
				"identity": "vitalik",
				"platform": "farcaster",
				"displayName": "vitalik",
				"links": {
					"farcaster": {"link": "https://warpcast.com/vitalik", "handle": "vitalik"},
					"website": {"link": "https://vitalik.ca", "handle": "vitalik.ca"}
				}
			}
		]`))
	})

	p, err := resolver.Resolve(context.Background(), "vitalik.eth")
	require.NoError(t, err)

	assert.Equal(t, "vitalik.eth", p.Identity)
	assert.Equal(t, "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045", p.Address)
	assert.Equal(t, "Vitalik", p.DisplayName)
	assert.Equal(t, "ethereum", p.Description)
	assert.Equal(t, "https://cdn.example/avatar.png", p.Avatar)

	// Duplicate website link collapses to one entry.
	assert.Len(t, p.Socials, 2)
	assert.Contains(t, p.Socials, "https://vitalik.ca")
	assert.Contains(t, p.Socials, "https://warpcast.com/vitalik")
}

func TestResolveAvatarFallback(t *testing.T) {
	resolver := newTestResolver(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"address": "0xabc0000000000000000000000000000000000000", "identity": "x", "displayName": ""}]`))
	})

	p, err := resolver.Resolve(context.Background(), "someone.eth")
	require.NoError(t, err)
	assert.Equal(t, "https://effigy.im/a/0xabc0000000000000000000000000000000000000.png", p.Avatar)
	assert.Equal(t, "someone.eth", p.DisplayName)
}

func TestResolveCapsSocialLinks(t *testing.T) {
	resolver := newTestResolver(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{
			"address": "0xabc0000000000000000000000000000000000000",
			"links": {
				"a": {"link": "https://a.example"},
				"b": {"link": "https://b.example"},
				"c": {"link": "https://c.example"},
				"d": {"link": "https://d.example"},
				"e": {"link": "https://e.example"}
			}
		}]`))
	})

	p, err := resolver.Resolve(context.Background(), "someone.eth")
	require.NoError(t, err)
	assert.Len(t, p.Socials, 3)
}

func TestResolveNotFound(t *testing.T) {
	t.Run("404", func(t *testing.T) {
		resolver := newTestResolver(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		_, err := resolver.Resolve(context.Background(), "nobody.eth")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("empty result", func(t *testing.T) {
		resolver := newTestResolver(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[]`))
		})
		_, err := resolver.Resolve(context.Background(), "nobody.eth")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("empty identity", func(t *testing.T) {
		resolver := NewResolver("http://unused", time.Second)
		_, err := resolver.Resolve(context.Background(), "   ")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("entry without address", func(t *testing.T) {
		resolver := newTestResolver(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[{"identity": "x"}]`))
		})
		_, err := resolver.Resolve(context.Background(), "someone.eth")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
