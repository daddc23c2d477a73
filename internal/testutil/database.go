// Package testutil provides shared test helpers: migrated in-memory databases
// and builders for raw spreadsheet rows.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/carga/internal/model"
	"github.com/Veraticus/carga/internal/service"
	"github.com/Veraticus/carga/internal/storage"
)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a migrated in-memory database closed at test cleanup.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	return SetupTestDBWithOptions(t, TestDBOptions{})
}

// TestDBOptions provides configuration options for test database setup.
type TestDBOptions struct {
	CustomSetup    func(context.Context, service.Storage) error
	Records        []model.CanonicalRecord
	BatchSize      int
	SkipMigrations bool
}

// SetupTestDBWithOptions creates a test database with custom options.
func SetupTestDBWithOptions(t *testing.T, opts TestDBOptions) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	store.SetBatchSize(opts.BatchSize)

	ctx := context.Background()
	if !opts.SkipMigrations {
		if err := store.Migrate(ctx); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
	}

	if len(opts.Records) > 0 {
		_, failures, err := store.SaveRecords(ctx, opts.Records, nil)
		if err != nil {
			t.Fatalf("failed to seed records: %v", err)
		}
		if len(failures) > 0 {
			t.Fatalf("failed to seed records: %v", failures[0])
		}
	}

	if opts.CustomSetup != nil {
		if err := opts.CustomSetup(ctx, store); err != nil {
			t.Fatalf("custom setup failed: %v", err)
		}
	}

	return &TestDB{Storage: store, t: t}
}

// MustCount returns the number of stored records matching filter or fails the test.
func (db *TestDB) MustCount(filter service.RecordFilter) int {
	db.t.Helper()
	n, err := db.Storage.CountRecords(context.Background(), filter)
	if err != nil {
		db.t.Fatalf("failed to count records: %v", err)
	}
	return n
}

// MustList returns the stored records matching filter or fails the test.
func (db *TestDB) MustList(filter service.RecordFilter) []model.CanonicalRecord {
	db.t.Helper()
	records, err := db.Storage.ListRecords(context.Background(), filter)
	if err != nil {
		db.t.Fatalf("failed to list records: %v", err)
	}
	return records
}
