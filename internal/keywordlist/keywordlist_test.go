package keywordlist

import (
	"context"
	"testing"

	"github.com/sitforge/dlpsit/internal/store"
)

func TestCreateAndGetRoundTripsItemsInOrder(t *testing.T) {
	ctx := context.Background()
	db, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	r := NewRepository(db)
	created, err := r.Create(ctx, "card brands", "known card brand names", []string{"visa", "mastercard", "amex"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len(created.Items) != 3 || created.Items[0] != "visa" || created.Items[2] != "amex" {
		t.Fatalf("Items = %v, want [visa mastercard amex] in order", created.Items)
	}

	got, err := r.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(got.Items) != 3 {
		t.Fatalf("Get().Items = %v, want 3 items", got.Items)
	}
}
