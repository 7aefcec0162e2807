package testsupport

import (
	"testing"

	"vidshelf/internal/config"
	"vidshelf/internal/ledger"
)

// MustOpenLedger opens a ledger store for the given config and registers
// cleanup with the test.
func MustOpenLedger(t testing.TB, cfg *config.Config) *ledger.Store {
	t.Helper()

	store, err := ledger.Open(cfg)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
