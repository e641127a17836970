package member

import (
	"fmt"
	"time"

	"github.com/RIFTIO/RIFT.ware-sub004/internal/xact"
)

// DefaultAuditCapacity is the audit ring size used when none is configured.
const DefaultAuditCapacity = 8

// AuditPolicy decides what a full audit trail does with a new entry.
type AuditPolicy int

const (
	// AuditReject refuses the new entry and keeps the existing ones.
	AuditReject AuditPolicy = iota
	// AuditEvictOldest drops the oldest entry to make room.
	AuditEvictOldest
)

func (p AuditPolicy) String() string {
	switch p {
	case AuditReject:
		return "reject"
	case AuditEvictOldest:
		return "evict-oldest"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParseAuditPolicy accepts the names printed by AuditPolicy.String.
func ParseAuditPolicy(s string) (AuditPolicy, error) {
	switch s {
	case "reject", "":
		return AuditReject, nil
	case "evict-oldest":
		return AuditEvictOldest, nil
	}
	return AuditReject, fmt.Errorf("unknown audit policy %q", s)
}

// AuditEntry records one mutation of a data object.
type AuditEntry struct {
	Actor     string
	Action    xact.Action
	Timestamp time.Time
}

// AuditTrail is a fixed-capacity ring of audit entries.
type AuditTrail struct {
	ring   []AuditEntry
	start  int
	n      int
	policy AuditPolicy
}

// NewAuditTrail creates an empty trail. A capacity below 1 is raised to 1.
func NewAuditTrail(capacity int, policy AuditPolicy) *AuditTrail {
	if capacity < 1 {
		capacity = 1
	}
	return &AuditTrail{ring: make([]AuditEntry, capacity), policy: policy}
}

// Append adds e. On a full trail it fails with ErrAuditFull under
// AuditReject, or overwrites the oldest entry under AuditEvictOldest.
func (a *AuditTrail) Append(e AuditEntry) error {
	if a.n == len(a.ring) {
		if a.policy == AuditReject {
			return ErrAuditFull
		}
		a.ring[a.start] = e
		a.start = (a.start + 1) % len(a.ring)
		return nil
	}
	a.ring[(a.start+a.n)%len(a.ring)] = e
	a.n++
	return nil
}

// Entries returns the entries oldest first.
func (a *AuditTrail) Entries() []AuditEntry {
	out := make([]AuditEntry, a.n)
	for i := 0; i < a.n; i++ {
		out[i] = a.ring[(a.start+i)%len(a.ring)]
	}
	return out
}

func (a *AuditTrail) Len() int { return a.n }

func (a *AuditTrail) Cap() int { return len(a.ring) }

// Full reports whether the next Append would reject or evict.
func (a *AuditTrail) Full() bool { return a.n == len(a.ring) }

func (a *AuditTrail) clone() *AuditTrail {
	c := &AuditTrail{ring: make([]AuditEntry, len(a.ring)), start: a.start, n: a.n, policy: a.policy}
	copy(c.ring, a.ring)
	return c
}
