package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/RIFTIO/RIFT.ware-sub004/internal/ir"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/keyspec"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/member"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/store"
)

// KVDumpOptions holds flags for kv dump.
type KVDumpOptions struct {
	*RootOptions
	DB        string
	Namespace string
	Shards    bool
}

// KVEntry is one mirrored key.
type KVEntry struct {
	Key    string `json:"key"`
	Digest string `json:"digest"`
	Seq    int64  `json:"seq"`
	Value  string `json:"value"`
}

// NamespaceDump holds the entries of one KV namespace.
type NamespaceDump struct {
	Name    string    `json:"name"`
	Entries []KVEntry `json:"entries"`
}

// ShardEntry is one record of a shard.
type ShardEntry struct {
	Keyspec string          `json:"keyspec"`
	Type    string          `json:"type,omitempty"`
	Body    json.RawMessage `json:"body"` // canonical JSON
}

// ShardDump holds the records of one shard.
type ShardDump struct {
	Name    string       `json:"name"`
	Records []ShardEntry `json:"records"`
}

// KVDumpResult is the output of kv dump.
type KVDumpResult struct {
	DB         string          `json:"db"`
	Namespaces []NamespaceDump `json:"namespaces"`
	Shards     []ShardDump     `json:"shards,omitempty"`
}

// NewKVCommand creates the kv command group.
func NewKVCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kv",
		Short: "Inspect a SQLite KV mirror",
	}
	cmd.AddCommand(newKVDumpCommand(rootOpts))
	return cmd
}

func newKVDumpCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &KVDumpOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "List mirrored keys and values",
		Long: `List the entries of every KV namespace in a SQLite database, in
write order. Namespaces are named after the scenario that wrote them.

Examples:
  dtsmember kv dump --db member.db
  dtsmember kv dump --db member.db --namespace car_lifecycle
  dtsmember kv dump --db member.db --shards --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return dumpKV(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "database path (default kv.path from config)")
	cmd.Flags().StringVar(&opts.Namespace, "namespace", "", "only this namespace")
	cmd.Flags().BoolVar(&opts.Shards, "shards", false, "also list shard records")

	return cmd
}

func dumpKV(cmd *cobra.Command, opts *KVDumpOptions) error {
	out := opts.formatter(cmd)
	path := opts.DB
	if path == "" {
		path = opts.Config.KV.Path
	}
	if path == "" {
		return NewExitError(ExitCommandError, "no database: pass --db or set kv.path")
	}
	if _, err := os.Stat(path); err != nil {
		return out.fail(ExitCommandError, CodeStore, "database not found", err)
	}

	st, err := store.Open(path)
	if err != nil {
		return out.fail(ExitCommandError, CodeStore, "failed to open database", err)
	}
	defer st.Close()

	result, err := collectDump(cmd.Context(), st, path, opts)
	if err != nil {
		return out.fail(ExitCommandError, CodeStore, "failed to read database", err)
	}
	return out.Emit(result, func(w io.Writer) { writeDumpText(w, result) })
}

func collectDump(ctx context.Context, st *store.Store, path string, opts *KVDumpOptions) (KVDumpResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	result := KVDumpResult{DB: path, Namespaces: []NamespaceDump{}}

	names := []string{opts.Namespace}
	if opts.Namespace == "" {
		var err error
		if names, err = st.Namespaces(ctx); err != nil {
			return result, err
		}
	}
	for _, ns := range names {
		entries, err := st.KV(ns).List(ctx)
		if err != nil {
			return result, err
		}
		nd := NamespaceDump{Name: ns, Entries: make([]KVEntry, 0, len(entries))}
		for _, e := range entries {
			nd.Entries = append(nd.Entries, KVEntry{Key: string(e.Key), Digest: e.KeyDigest, Seq: e.Seq, Value: e.Value})
		}
		result.Namespaces = append(result.Namespaces, nd)
	}

	if !opts.Shards {
		return result, nil
	}
	shards, err := st.Shards(ctx)
	if err != nil {
		return result, err
	}
	for _, name := range shards {
		sd := ShardDump{Name: name, Records: []ShardEntry{}}
		err := st.Shard(name).Scan(ctx, func(_ keyspec.Key, rec *member.ShardRecord) error {
			se := ShardEntry{Keyspec: rec.Keyspec.String(), Body: json.RawMessage("{}")}
			if rec.Message != nil {
				body, err := ir.MarshalCanonical(rec.Message.Body)
				if err != nil {
					return err
				}
				se.Type = rec.Message.Type
				se.Body = body
			}
			sd.Records = append(sd.Records, se)
			return nil
		})
		if err != nil {
			return result, fmt.Errorf("scan shard %s: %w", name, err)
		}
		result.Shards = append(result.Shards, sd)
	}
	return result, nil
}

func writeDumpText(w io.Writer, result KVDumpResult) {
	if len(result.Namespaces) == 0 {
		fmt.Fprintln(w, "No KV entries.")
	}
	for _, ns := range result.Namespaces {
		fmt.Fprintf(w, "%s (%d)\n", ns.Name, len(ns.Entries))
		for _, e := range ns.Entries {
			fmt.Fprintf(w, "  %4d  %s  %s  %s\n", e.Seq, e.Digest, e.Key, e.Value)
		}
	}
	for _, sd := range result.Shards {
		fmt.Fprintf(w, "shard %s (%d)\n", sd.Name, len(sd.Records))
		for _, r := range sd.Records {
			fmt.Fprintf(w, "  %s  %s\n", r.Keyspec, r.Body)
		}
	}
}
