package exprql

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/zoobzio/exprql/internal/types"
)

// FragmentHandle refers to a registered fragment.
type FragmentHandle struct {
	Key      string
	Fragment Fragment
}

// Fragments is a fragment registry where the first registration of a key wins.
// Registering a taken key returns the existing handle.
type Fragments struct {
	mu      sync.RWMutex
	entries map[string]*FragmentHandle
	log     *slog.Logger
}

// StrictFragments is a fragment registry that rejects duplicate keys.
type StrictFragments struct {
	mu      sync.RWMutex
	entries map[string]*FragmentHandle
	log     *slog.Logger
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewFragments creates an empty first-wins registry.
func NewFragments(logger *slog.Logger) *Fragments {
	if logger == nil {
		logger = discardLogger()
	}
	return &Fragments{entries: make(map[string]*FragmentHandle), log: logger}
}

// NewStrictFragments creates an empty strict registry.
func NewStrictFragments(logger *slog.Logger) *StrictFragments {
	if logger == nil {
		logger = discardLogger()
	}
	return &StrictFragments{entries: make(map[string]*FragmentHandle), log: logger}
}

func checkFragment(key string, fn Fragment) error {
	if err := types.CheckIdentifier("fragment", key); err != nil {
		return err
	}
	if fn == nil {
		return fmt.Errorf("fragment %s: render function cannot be nil", key)
	}
	return nil
}

// Register adds fn under key unless key is already taken.
func (r *Fragments) Register(key string, fn Fragment) (*FragmentHandle, error) {
	if err := checkFragment(key, fn); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.entries[key]; ok {
		r.log.Debug("fragment already registered", "key", key)
		return h, nil
	}
	h := &FragmentHandle{Key: key, Fragment: fn}
	r.entries[key] = h
	r.log.Debug("registered fragment", "key", key)
	return h, nil
}

// Lookup implements FragmentSource.
func (r *Fragments) Lookup(key string) (Fragment, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.entries[key]
	if !ok {
		return nil, false
	}
	return h.Fragment, true
}

// Keys lists the registered keys in sorted order.
func (r *Fragments) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.entries)
}

// Register adds fn under key, failing with ErrDuplicateRegistration if key is taken.
func (r *StrictFragments) Register(key string, fn Fragment) (*FragmentHandle, error) {
	if err := checkFragment(key, fn); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[key]; ok {
		r.log.Warn("duplicate fragment registration", "key", key)
		return nil, fmt.Errorf("fragment %s: %w", key, types.ErrDuplicateRegistration)
	}
	h := &FragmentHandle{Key: key, Fragment: fn}
	r.entries[key] = h
	r.log.Debug("registered strict fragment", "key", key)
	return h, nil
}

// Lookup implements FragmentSource.
func (r *StrictFragments) Lookup(key string) (Fragment, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.entries[key]
	if !ok {
		return nil, false
	}
	return h.Fragment, true
}

// Keys lists the registered keys in sorted order.
func (r *StrictFragments) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.entries)
}

func sortedKeys(m map[string]*FragmentHandle) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Process-wide registries consulted by Compile after any WithFragments sources.
var (
	DefaultFragments       = NewFragments(nil)
	DefaultStrictFragments = NewStrictFragments(nil)
)

// RegisterDynamicSQL registers fn in DefaultFragments. The first registration
// of a key wins.
func RegisterDynamicSQL(key string, fn Fragment) (*FragmentHandle, error) {
	return DefaultFragments.Register(key, fn)
}

// RegisterStrictSQL registers fn in DefaultStrictFragments, rejecting duplicates.
func RegisterStrictSQL(key string, fn Fragment) (*FragmentHandle, error) {
	return DefaultStrictFragments.Register(key, fn)
}
