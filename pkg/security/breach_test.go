package security

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryBreachCache struct {
	verdicts map[string]bool
	stores   int
}

func newMemoryBreachCache() *memoryBreachCache {
	return &memoryBreachCache{verdicts: make(map[string]bool)}
}

func (c *memoryBreachCache) BreachStatus(hash string) (bool, bool, error) {
	exposed, found := c.verdicts[hash]
	return exposed, found, nil
}

func (c *memoryBreachCache) StoreBreachStatus(hash string, exposed bool) error {
	c.verdicts[hash] = exposed
	c.stores++
	return nil
}

func TestHashPassword(t *testing.T) {
	assert.Equal(t, "5BAA61E4C9B93F3F0682250B6CF8331B7EE68FD8", HashPassword("password"))
	assert.Len(t, HashPassword("anything"), 40)
}

func TestBreachCheckCommonSkipsNetwork(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))
	defer srv.Close()

	c := NewBreachChecker(srv.URL, nil)
	assert.Equal(t, BreachCommon, c.Check(context.Background(), "hunter2"))
	assert.Equal(t, int32(0), requests.Load())
}

func TestBreachCheckExposed(t *testing.T) {
	const password = "kxMq2rTz#vN9"
	hash := HashPassword(password)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Only the five-character prefix may appear in the request.
		assert.Equal(t, "/range/"+hash[:5], r.URL.Path)
		assert.NotContains(t, r.URL.Path, hash[5:])

		fmt.Fprintf(w, "0018A45C4D1DEF81644B54AB7F969B88D65:3\r\n")
		fmt.Fprintf(w, "%s:1204\r\n", hash[5:])
		fmt.Fprintf(w, "011053FD0102E94D6AE2F8B83D76FAF94F6:1\r\n")
	}))
	defer srv.Close()

	c := NewBreachChecker(srv.URL, nil)
	assert.Equal(t, BreachExposed, c.Check(context.Background(), password))
}

func TestBreachCheckNotExposed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "0018A45C4D1DEF81644B54AB7F969B88D65:3\r\n")
	}))
	defer srv.Close()

	c := NewBreachChecker(srv.URL, nil)
	assert.Equal(t, BreachOk, c.Check(context.Background(), "kxMq2rTz#vN9"))
}

func TestBreachCheckDegradesOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewBreachChecker(srv.URL, nil)
	assert.Equal(t, BreachOk, c.Check(context.Background(), "kxMq2rTz#vN9"))
}

func TestBreachCheckDegradesOnUnreachableService(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewBreachChecker(srv.URL, nil)
	assert.Equal(t, BreachOk, c.Check(context.Background(), "kxMq2rTz#vN9"))
}

func TestBreachCheckUsesCache(t *testing.T) {
	const password = "kxMq2rTz#vN9"
	hash := HashPassword(password)

	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		fmt.Fprintf(w, "%s:1204\r\n", hash[5:])
	}))
	defer srv.Close()

	cache := newMemoryBreachCache()
	c := NewBreachChecker(srv.URL, cache)

	require.Equal(t, BreachExposed, c.Check(context.Background(), password))
	assert.Equal(t, int32(1), requests.Load())
	assert.Equal(t, 1, cache.stores)

	// Second check is answered from the cache.
	require.Equal(t, BreachExposed, c.Check(context.Background(), password))
	assert.Equal(t, int32(1), requests.Load())
	assert.Equal(t, 1, cache.stores)
}
