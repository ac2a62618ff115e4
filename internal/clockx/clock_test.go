package clockx

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystem_TruncatedToSeconds(t *testing.T) {
	now := System{}.Now()
	assert.Equal(t, 0, now.Nanosecond())
	assert.Equal(t, time.UTC, now.Location())
}

func TestFake_SetAndAdvance(t *testing.T) {
	c := NewFakeUnix(1_700_000_000)
	require.Equal(t, int64(1_700_000_000), c.Now().Unix())

	c.Advance(900 * time.Second)
	assert.Equal(t, int64(1_700_000_900), c.Now().Unix())

	c.Set(time.Unix(42, 0))
	assert.Equal(t, int64(42), c.Now().Unix())
}

func TestFake_ConcurrentAdvance(t *testing.T) {
	c := NewFakeUnix(0)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Advance(time.Second)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(50), c.Now().Unix())
}

func TestNewUUID_Version4AndDistinct(t *testing.T) {
	a, b := NewUUID(), NewUUID()
	assert.Equal(t, 4, int(a.Version()))
	assert.NotEqual(t, a, b)
}
