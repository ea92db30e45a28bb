package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func TestLRUExpiresAfterTTL(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	c := NewLRU[int64, string](4, time.Minute).WithClock(clock.now)

	c.Set(1, "a")
	v, ok := c.Get(1)
	assert.True(t, ok)
	assert.Equal(t, "a", v)

	clock.t = clock.t.Add(time.Minute)
	_, ok = c.Get(1)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU[int64, int](2, time.Hour)
	c.Set(1, 1)
	c.Set(2, 2)
	c.Get(1)
	c.Set(3, 3)

	_, ok := c.Get(2)
	assert.False(t, ok, "2 was least recently used")
	_, ok = c.Get(1)
	assert.True(t, ok)
	_, ok = c.Get(3)
	assert.True(t, ok)
}

func TestLRUZeroTTLDisables(t *testing.T) {
	c := NewLRU[int64, int](2, 0)
	c.Set(1, 1)
	_, ok := c.Get(1)
	assert.False(t, ok)
}

func TestLRUDeleteAndPurge(t *testing.T) {
	c := NewLRU[string, int](4, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Delete("a")
	assert.Equal(t, 1, c.Len())
	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestJanitorSweep(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	c := NewLRU[int64, int](4, time.Second).WithClock(clock.now)
	c.Set(1, 1)
	c.Set(2, 2)

	var reported int
	j := NewJanitor(func(n int) { reported = n })
	j.Register(c)

	assert.Equal(t, 0, j.Sweep())
	clock.t = clock.t.Add(2 * time.Second)
	assert.Equal(t, 2, j.Sweep())
	assert.Equal(t, 2, reported)

	j.Start(time.Hour)
	j.Start(time.Hour)
	j.Stop()
	j.Stop()
}
