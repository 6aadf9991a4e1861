package dnscache_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ourcaldo/emval/internal/dnscache"
	"github.com/ourcaldo/emval/internal/dnsresolver"
)

func definitive(hosts ...string) dnsresolver.Outcome {
	return dnsresolver.Outcome{HasRecords: true, MXHosts: hosts, Cacheable: true}
}

func TestCache_GetPut(t *testing.T) {
	c := dnscache.New(10)

	_, ok := c.Get("example.com")
	assert.False(t, ok)

	c.Put("example.com", definitive("mx.example.com"))

	out, ok := c.Get("example.com")
	assert.True(t, ok)
	assert.Equal(t, []string{"mx.example.com"}, out.MXHosts)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.CurrSize)
	assert.Equal(t, 10, stats.MaxSize)
}

func TestCache_TransientNeverStored(t *testing.T) {
	c := dnscache.New(10)

	c.Put("example.com", dnsresolver.Outcome{Err: "DNS timeout (temporary)", Cacheable: false})
	_, ok := c.Get("example.com")
	assert.False(t, ok, "transient outcomes must never enter the cache")

	// A later definitive result still lands.
	c.Put("example.com", definitive("mx.example.com"))
	out, ok := c.Get("example.com")
	assert.True(t, ok)
	assert.True(t, out.HasRecords)
}

func TestCache_DefinitiveFailureIsStored(t *testing.T) {
	c := dnscache.New(10)

	c.Put("gone.example", dnsresolver.Outcome{Err: "domain not found (no DNS records)", Cacheable: true})
	out, ok := c.Get("gone.example")
	assert.True(t, ok)
	assert.False(t, out.HasRecords)
}

func TestCache_LRUEviction(t *testing.T) {
	c := dnscache.New(3)

	c.Put("a.com", definitive("mx.a.com"))
	c.Put("b.com", definitive("mx.b.com"))
	c.Put("c.com", definitive("mx.c.com"))

	// Touch a.com so b.com becomes the oldest.
	_, ok := c.Get("a.com")
	assert.True(t, ok)

	c.Put("d.com", definitive("mx.d.com"))

	_, ok = c.Get("b.com")
	assert.False(t, ok, "least recently used entry must be evicted")
	for _, domain := range []string{"a.com", "c.com", "d.com"} {
		_, ok = c.Get(domain)
		assert.True(t, ok, domain)
	}
	assert.Equal(t, 3, c.Stats().CurrSize)
}

func TestCache_SizeNeverExceedsCapacity(t *testing.T) {
	c := dnscache.New(5)
	for i := 0; i < 50; i++ {
		c.Put(fmt.Sprintf("domain%d.com", i), definitive("mx"))
		assert.LessOrEqual(t, c.Stats().CurrSize, 5)
	}
}

func TestCache_UpdateExisting(t *testing.T) {
	c := dnscache.New(10)
	c.Put("example.com", definitive("old.example.com"))
	c.Put("example.com", definitive("new.example.com"))

	out, _ := c.Get("example.com")
	assert.Equal(t, []string{"new.example.com"}, out.MXHosts)
	assert.Equal(t, 1, c.Stats().CurrSize)
}

func TestCache_Clear(t *testing.T) {
	c := dnscache.New(10)
	c.Put("example.com", definitive("mx.example.com"))
	c.Get("example.com")
	c.Clear()

	_, ok := c.Get("example.com")
	assert.False(t, ok)
	stats := c.Stats()
	assert.Equal(t, 0, stats.CurrSize)
	assert.Equal(t, int64(0), stats.Hits)
}
