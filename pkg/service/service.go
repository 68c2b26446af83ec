// Package service holds the business engines. Engines validate input,
// enforce state rules and drive the repositories; they never see transport
// concerns. The identity fields on Caller arrive from the gateway's token
// middleware and are trusted as given.
package service

import (
	"math"
	"sync"

	"github.com/google/uuid"
)

// Caller identifies the authenticated requester.
type Caller struct {
	ID    string
	Name  string
	Admin bool
}

func newID() string {
	return uuid.NewString()
}

// round2 rounds a monetary amount to cents.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// round1 rounds a rating to one decimal.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// keyedMutex hands out one mutex per key, so mutations on the same entity
// serialize while different entities proceed in parallel. Entries are never
// evicted, which is fine at storefront scale.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}
