package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/RIFTIO/RIFT.ware-sub004/internal/ir"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/keyspec"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/member"
)

// Entry is one row of the KV mirror.
type Entry struct {
	Namespace string
	Key       keyspec.Key
	KeyDigest string
	Value     string
	Seq       int64
}

// Get returns the value stored under key and whether it exists.
func (kv *KV) Get(ctx context.Context, key keyspec.Key) ([]byte, bool, error) {
	var value string
	err := kv.s.db.QueryRowContext(ctx, `
		SELECT value FROM kv_entries WHERE namespace = ? AND key = ?
	`, kv.namespace, []byte(key)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("kv get: %w", err)
	}
	return []byte(value), true, nil
}

// List returns every entry of the namespace.
// Results are ordered deterministically: ORDER BY seq ASC.
//
// Returns an empty slice (not nil) for an empty namespace.
func (kv *KV) List(ctx context.Context) ([]Entry, error) {
	rows, err := kv.s.db.QueryContext(ctx, `
		SELECT namespace, key, key_digest, value, seq
		FROM kv_entries
		WHERE namespace = ?
		ORDER BY seq ASC
	`, kv.namespace)
	if err != nil {
		return nil, fmt.Errorf("query kv entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var key []byte
		if err := rows.Scan(&e.Namespace, &key, &e.KeyDigest, &e.Value, &e.Seq); err != nil {
			return nil, fmt.Errorf("scan kv entry: %w", err)
		}
		e.Key = keyspec.Key(key)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate kv entries: %w", err)
	}
	return entries, nil
}

// Namespaces returns the names of every non-empty KV namespace, sorted.
func (s *Store) Namespaces(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, `SELECT DISTINCT namespace FROM kv_entries ORDER BY namespace COLLATE BINARY ASC`)
}

// Shards returns the names of every non-empty shard, sorted.
func (s *Store) Shards(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, `SELECT DISTINCT shard FROM shard_records ORDER BY shard COLLATE BINARY ASC`)
}

func (s *Store) distinct(ctx context.Context, query string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query names: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan name: %w", err)
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate names: %w", err)
	}
	return names, nil
}

// Get returns the record stored under key, or nil, nil when absent.
func (sh *Shard) Get(ctx context.Context, key keyspec.Key) (*member.ShardRecord, error) {
	row := sh.s.db.QueryRowContext(ctx, `
		SELECT keyspec, category, msg_type, body
		FROM shard_records
		WHERE shard = ? AND key = ?
	`, sh.name, []byte(key))

	rec, err := scanShardRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("shard get: %w", err)
	}
	return rec, nil
}

// Scan visits every record in insertion order and stops at the first error
// fn returns. Rows are read fully before fn runs, so fn may write to the
// shard.
func (sh *Shard) Scan(ctx context.Context, fn func(keyspec.Key, *member.ShardRecord) error) error {
	rows, err := sh.s.db.QueryContext(ctx, `
		SELECT key, keyspec, category, msg_type, body
		FROM shard_records
		WHERE shard = ?
		ORDER BY seq ASC
	`, sh.name)
	if err != nil {
		return fmt.Errorf("query shard records: %w", err)
	}

	type keyed struct {
		key keyspec.Key
		rec *member.ShardRecord
	}
	var all []keyed
	for rows.Next() {
		var key []byte
		var xpath, category, msgType, body string
		if err := rows.Scan(&key, &xpath, &category, &msgType, &body); err != nil {
			rows.Close()
			return fmt.Errorf("scan shard record: %w", err)
		}
		rec, err := decodeShardRecord(xpath, category, msgType, body)
		if err != nil {
			rows.Close()
			return err
		}
		all = append(all, keyed{key: keyspec.Key(key), rec: rec})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterate shard records: %w", err)
	}
	rows.Close()

	for _, k := range all {
		if err := fn(k.key, k.rec); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of records in the shard.
func (sh *Shard) Len(ctx context.Context) (int, error) {
	var n int
	err := sh.s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM shard_records WHERE shard = ?
	`, sh.name).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("shard len: %w", err)
	}
	return n, nil
}

func scanShardRecord(row *sql.Row) (*member.ShardRecord, error) {
	var xpath, category, msgType, body string
	if err := row.Scan(&xpath, &category, &msgType, &body); err != nil {
		return nil, err
	}
	return decodeShardRecord(xpath, category, msgType, body)
}

func decodeShardRecord(xpath, category, msgType, body string) (*member.ShardRecord, error) {
	ks, err := unmarshalKeyspec(xpath, category)
	if err != nil {
		return nil, err
	}
	obj, err := unmarshalBody(body)
	if err != nil {
		return nil, err
	}
	return &member.ShardRecord{Keyspec: ks, Message: &ir.Message{Type: msgType, Body: obj}}, nil
}
