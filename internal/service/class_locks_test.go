package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassLocksSerialiseSameClass(t *testing.T) {
	locks := NewClassLocks()
	unlock := locks.Lock("A", "B", "A", "")
	assert.Equal(t, 2, locks.Len())

	acquired := make(chan struct{})
	go func() {
		release := locks.Lock("B")
		close(acquired)
		release()
	}()

	select {
	case <-acquired:
		t.Fatal("class B was locked twice")
	case <-time.After(30 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("class B lock was never released")
	}
}

func TestClassLocksDropIdleEntries(t *testing.T) {
	locks := NewClassLocks()
	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids := []string{"X", "Y"}
			if i%2 == 1 {
				ids = []string{"Y", "X"}
			}
			unlock := locks.Lock(ids...)
			counter++
			unlock()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Zero(t, locks.Len())
}
