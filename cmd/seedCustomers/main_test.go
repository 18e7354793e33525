package main

import (
	"context"
	"path/filepath"
	"testing"

	"qcinspect/infrastructure/options"
	"qcinspect/infrastructure/sqlite"
)

func TestSeedCustomersIsIdempotent(t *testing.T) {
	db, err := sqlite.OpenDB(filepath.Join(t.TempDir(), "seed.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	first, err := seedCustomers(context.Background(), db)
	if err != nil {
		t.Fatalf("first seed: %v", err)
	}
	if first.Inserted != 56 || first.Updated != 0 || first.Errors != 0 {
		t.Fatalf("unexpected first summary %+v", first)
	}

	second, err := seedCustomers(context.Background(), db)
	if err != nil {
		t.Fatalf("second seed: %v", err)
	}
	if second.Inserted != 0 || second.Updated != 56 {
		t.Fatalf("unexpected second summary %+v", second)
	}

	customers, err := options.NewCentralStore(db, nil).Load(context.Background(), "any", options.KindCustomer)
	if err != nil {
		t.Fatalf("load customers: %v", err)
	}
	found := false
	for _, c := range customers {
		if c.Value == "LOLOI" && c.Code == "L-02" {
			found = true
		}
	}
	if len(customers) != 56 || !found {
		t.Fatalf("expected 56 customers including LOLOI, got %d", len(customers))
	}
}
