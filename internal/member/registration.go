package member

import (
	"fmt"

	"github.com/RIFTIO/RIFT.ware-sub004/internal/engine"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/keyspec"
)

// RegFlags describe a registration's access mode.
type RegFlags uint32

const (
	FlagPublisher RegFlags = 1 << iota
	FlagSubscriber
	FlagDatastore
	FlagCache
	FlagShared
	FlagNoPrepRead
)

// Has reports whether all bits of f2 are set.
func (f RegFlags) Has(f2 RegFlags) bool {
	return f&f2 == f2
}

var regFlagNames = []struct {
	flag RegFlags
	name string
}{
	{FlagPublisher, "publisher"},
	{FlagSubscriber, "subscriber"},
	{FlagDatastore, "datastore"},
	{FlagCache, "cache"},
	{FlagShared, "shared"},
	{FlagNoPrepRead, "no-prep-read"},
}

// ParseRegFlags combines flag names such as "publisher" and "cache".
func ParseRegFlags(names ...string) (RegFlags, error) {
	var f RegFlags
outer:
	for _, n := range names {
		for _, rf := range regFlagNames {
			if rf.name == n {
				f |= rf.flag
				continue outer
			}
		}
		return 0, fmt.Errorf("unknown registration flag %q", n)
	}
	return f, nil
}

// mirrors reports whether committed writes are copied to the KV backend.
func (f RegFlags) mirrors() bool {
	return f.Has(FlagPublisher) && (f.Has(FlagCache) || f.Has(FlagDatastore))
}

// Registration is a client's binding to a family of objects under a base
// keyspec. It owns the committed table for those objects.
type Registration struct {
	id      int
	client  *Client
	base    *keyspec.Keyspec
	flags   RegFlags
	msgType string
	table   *table
	serial  *engine.Clock
	kv      KV
	shard   Shard
	closed  bool
}

// RegOption configures a registration.
type RegOption func(*Registration)

// WithKV mirrors committed writes of a cache or datastore publisher to kv.
func WithKV(kv KV) RegOption {
	return func(r *Registration) {
		r.kv = kv
	}
}

// WithShard stores the registration's objects in s instead of the
// in-memory table.
func WithShard(s Shard) RegOption {
	return func(r *Registration) {
		r.shard = s
	}
}

// WithSerial starts the serial at n, e.g. when reattaching to a shard.
func WithSerial(n int64) RegOption {
	return func(r *Registration) {
		r.serial = engine.NewClockAt(n)
	}
}

// Keyspec returns a copy of the base keyspec.
func (r *Registration) Keyspec() *keyspec.Keyspec { return r.base.Clone() }

func (r *Registration) Category() keyspec.Category { return r.base.Category }

func (r *Registration) Depth() int { return r.base.Depth() }

func (r *Registration) Flags() RegFlags { return r.flags }

// MessageType is the declared type of the registration's messages.
func (r *Registration) MessageType() string { return r.msgType }

// Serial is the number of advises completed for this registration.
func (r *Registration) Serial() int64 { return r.serial.Current() }

// Count is the number of committed objects. Registrations backed by a
// shard report 0.
func (r *Registration) Count() int { return r.table.len() }

// Closed reports whether the registration was deregistered.
func (r *Registration) Closed() bool { return r.closed }

func (r *Registration) String() string {
	return fmt.Sprintf("reg#%d%s", r.id, r.base)
}

// matchesType reports whether o carries the declared message type.
func (r *Registration) matchesType(o *dataObject) bool {
	return r.msgType == "" || o.msg == nil || o.msg.Type == r.msgType
}
