package store

import (
	"path/filepath"
	"testing"

	"github.com/RIFTIO/RIFT.ware-sub004/internal/ir"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/keyspec"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/member"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRecord creates a shard record for /car[brand=...] with the
// given models.
func createTestRecord(brand string, models ...string) (keyspec.Key, *member.ShardRecord) {
	ks := keyspec.New(keyspec.CategoryConfig, keyspec.Entry("car", keyspec.K("brand", ir.String(brand))))
	return ks.MustKey(), &member.ShardRecord{
		Keyspec: ks,
		Message: ir.NewMessage("Car", ir.F("models", ir.Strings(models...))),
	}
}
