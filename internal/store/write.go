package store

import (
	"context"
	"fmt"

	"github.com/RIFTIO/RIFT.ware-sub004/internal/keyspec"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/member"
)

// KV is one namespace of the KV mirror. It implements member.KV.
type KV struct {
	s         *Store
	namespace string
}

var _ member.KV = (*KV)(nil)

// KV returns the mirror namespace name. Namespaces are created on first
// write.
func (s *Store) KV(namespace string) *KV {
	return &KV{s: s, namespace: namespace}
}

func (kv *KV) Namespace() string { return kv.namespace }

// Put stores value under key. Uses ON CONFLICT DO UPDATE so a rewrite keeps
// the key's original seq.
func (kv *KV) Put(ctx context.Context, key keyspec.Key, value []byte) error {
	_, err := kv.s.db.ExecContext(ctx, `
		INSERT INTO kv_entries (namespace, key, key_digest, value, seq)
		VALUES (?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM kv_entries WHERE namespace = ?))
		ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value
	`,
		kv.namespace,
		[]byte(key),
		keyDigest(key),
		string(value),
		kv.namespace,
	)
	if err != nil {
		return fmt.Errorf("kv put: %w", err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (kv *KV) Delete(ctx context.Context, key keyspec.Key) error {
	_, err := kv.s.db.ExecContext(ctx, `
		DELETE FROM kv_entries WHERE namespace = ? AND key = ?
	`, kv.namespace, []byte(key))
	if err != nil {
		return fmt.Errorf("kv delete: %w", err)
	}
	return nil
}

// Shard is one named shard. It implements member.Shard.
type Shard struct {
	s    *Store
	name string
}

var _ member.Shard = (*Shard)(nil)

// Shard returns the shard called name. Shards are created on first write.
func (s *Store) Shard(name string) *Shard {
	return &Shard{s: s, name: name}
}

func (sh *Shard) Name() string { return sh.name }

// Put stores rec under key, keeping the key's original seq on rewrite.
func (sh *Shard) Put(ctx context.Context, key keyspec.Key, rec *member.ShardRecord) error {
	if rec == nil || rec.Keyspec == nil || rec.Message == nil {
		return fmt.Errorf("shard put: incomplete record")
	}
	body, err := marshalBody(rec.Message)
	if err != nil {
		return fmt.Errorf("shard put: %w", err)
	}
	_, err = sh.s.db.ExecContext(ctx, `
		INSERT INTO shard_records (shard, key, keyspec, category, msg_type, body, seq)
		VALUES (?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM shard_records WHERE shard = ?))
		ON CONFLICT(shard, key) DO UPDATE SET
			keyspec = excluded.keyspec,
			category = excluded.category,
			msg_type = excluded.msg_type,
			body = excluded.body
	`,
		sh.name,
		[]byte(key),
		rec.Keyspec.String(),
		rec.Keyspec.Category.String(),
		rec.Message.Type,
		body,
		sh.name,
	)
	if err != nil {
		return fmt.Errorf("shard put: %w", err)
	}
	return nil
}

// Delete removes key and reports whether it was present.
func (sh *Shard) Delete(ctx context.Context, key keyspec.Key) (bool, error) {
	res, err := sh.s.db.ExecContext(ctx, `
		DELETE FROM shard_records WHERE shard = ? AND key = ?
	`, sh.name, []byte(key))
	if err != nil {
		return false, fmt.Errorf("shard delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("shard delete: rows affected: %w", err)
	}
	return n > 0, nil
}
