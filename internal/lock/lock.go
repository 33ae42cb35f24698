// Package lock provides the two explicit locks shared by crawl workers: a
// per-key lock that serialises work on the same case URL, and a writer lock
// that serialises commits against the single-writer store.
package lock

import "sync"

// Keyed hands out one mutex per key and forgets keys nobody holds.
type Keyed struct {
	mu      sync.Mutex
	entries map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyed returns an empty Keyed lock.
func NewKeyed() *Keyed {
	return &Keyed{entries: make(map[string]*keyedEntry)}
}

// Lock blocks until key is free and returns the matching unlock func.
func (k *Keyed) Lock(key string) (unlock func()) {
	k.mu.Lock()
	entry, ok := k.entries[key]
	if !ok {
		entry = &keyedEntry{}
		k.entries[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
	var once sync.Once
	return func() {
		once.Do(func() {
			entry.mu.Unlock()
			k.mu.Lock()
			entry.refs--
			if entry.refs == 0 {
				delete(k.entries, key)
			}
			k.mu.Unlock()
		})
	}
}

// Len reports how many keys are currently held or awaited.
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}

// Writer serialises commits. It is not reentrant.
type Writer struct {
	mu sync.Mutex
}

// NewWriter returns an unlocked Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Do runs fn while holding the writer lock.
func (w *Writer) Do(fn func() error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return fn()
}
