package testutil

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/RIFTIO/RIFT.ware-sub004/internal/keyspec"
)

// ErrInjected is returned by MemKV once FailNext is armed.
var ErrInjected = errors.New("injected failure")

// KVOp is one call observed by MemKV.
type KVOp struct {
	Op    string // "put" or "delete"
	Key   keyspec.Key
	Value string
}

// MemKV is an in-memory KV backend that records every call.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type MemKV struct {
	mu       sync.Mutex
	data     map[keyspec.Key][]byte
	ops      []KVOp
	failNext bool
}

func NewMemKV() *MemKV {
	return &MemKV{data: make(map[keyspec.Key][]byte)}
}

func (m *MemKV) Put(_ context.Context, key keyspec.Key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.consumeFailure() {
		return ErrInjected
	}
	m.data[key] = append([]byte(nil), value...)
	m.ops = append(m.ops, KVOp{Op: "put", Key: key, Value: string(value)})
	return nil
}

func (m *MemKV) Delete(_ context.Context, key keyspec.Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.consumeFailure() {
		return ErrInjected
	}
	delete(m.data, key)
	m.ops = append(m.ops, KVOp{Op: "delete", Key: key})
	return nil
}

// FailNext makes the next Put or Delete fail with ErrInjected.
func (m *MemKV) FailNext() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = true
}

func (m *MemKV) consumeFailure() bool {
	if m.failNext {
		m.failNext = false
		return true
	}
	return false
}

// Get returns the stored value and whether key is present.
func (m *MemKV) Get(key keyspec.Key) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return string(v), ok
}

func (m *MemKV) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// Keys returns the stored keys in sorted order.
func (m *MemKV) Keys() []keyspec.Key {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]keyspec.Key, 0, len(m.data))
	for k := range m.data {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Ops returns every successful call in order.
func (m *MemKV) Ops() []KVOp {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]KVOp(nil), m.ops...)
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
