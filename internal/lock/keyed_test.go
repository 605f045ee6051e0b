package lock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sync/errgroup"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	k := NewKeyedMutex()
	counter := 0

	g := errgroup.Group{}
	for i := 0; i < 100; i++ {
		g.Go(func() error {
			unlock := k.Lock("wallet-1")
			defer unlock()
			v := counter
			counter = v + 1
			return nil
		})
	}

	assert.NoError(t, g.Wait())
	assert.Equal(t, 100, counter)
	assert.Zero(t, k.Len())
}

func TestKeyedMutex_OppositeOrderDoesNotDeadlock(t *testing.T) {
	k := NewKeyedMutex()
	balances := map[string]int{"a": 1000, "b": 1000}

	g := errgroup.Group{}
	for i := 0; i < 200; i++ {
		from, to := "a", "b"
		if i%2 == 1 {
			from, to = "b", "a"
		}
		g.Go(func() error {
			unlock := k.Lock(from, to)
			defer unlock()
			balances[from]--
			balances[to]++
			return nil
		})
	}

	assert.NoError(t, g.Wait())
	assert.Equal(t, 2000, balances["a"]+balances["b"])
	assert.Zero(t, k.Len())
}

func TestKeyedMutex_DuplicateKeysAndDoubleUnlock(t *testing.T) {
	k := NewKeyedMutex()

	unlock := k.Lock("x", "x")
	assert.Equal(t, 1, k.Len())
	unlock()
	unlock()
	assert.Zero(t, k.Len())

	again := k.Lock("x")
	again()
}
