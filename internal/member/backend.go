package member

import (
	"context"

	"github.com/RIFTIO/RIFT.ware-sub004/internal/ir"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/keyspec"
)

// KV is a write-through mirror of a registration's committed objects,
// keyed by binary key with the canonical message encoding as value.
type KV interface {
	Put(ctx context.Context, key keyspec.Key, value []byte) error
	Delete(ctx context.Context, key keyspec.Key) error
}

// ShardRecord is one object held by a shard backend.
type ShardRecord struct {
	Keyspec *keyspec.Keyspec
	Message *ir.Message
}

// Shard replaces a registration's in-memory table. Get returns nil, nil
// for an absent key. Scan visits records in a stable order and stops at
// the first error fn returns.
type Shard interface {
	Get(ctx context.Context, key keyspec.Key) (*ShardRecord, error)
	Put(ctx context.Context, key keyspec.Key, rec *ShardRecord) error
	Delete(ctx context.Context, key keyspec.Key) (bool, error)
	Scan(ctx context.Context, fn func(key keyspec.Key, rec *ShardRecord) error) error
}

// Schema strips fields a message's declared type does not know and
// returns their paths. *schema.Registry implements it.
type Schema interface {
	Strip(m *ir.Message) []string
}
