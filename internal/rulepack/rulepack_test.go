package rulepack

import (
	"context"
	"testing"

	"github.com/sitforge/dlpsit/internal/model"
	"github.com/sitforge/dlpsit/internal/sit"
	"github.com/sitforge/dlpsit/internal/store"
)

func newTestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// sitVersionID creates a throwaway SIT version on db and returns its id,
// satisfying rulepack_selections' foreign key into sit_versions.
func sitVersionID(t *testing.T, db *store.DB, entityType string) string {
	t.Helper()
	sitRepo := sit.NewRepository(db)
	s, err := sitRepo.CreateSIT(context.Background(), entityType, "")
	if err != nil {
		t.Fatal(err)
	}
	v, err := sitRepo.CreateVersion(context.Background(), s.ID, model.SITVersion{
		EntityType:      entityType,
		PrimaryElement:  model.PrimaryElement{Type: model.PrimaryRegex, Value: `\d+`},
		SupportingLogic: model.SupportingLogic{Mode: model.LogicAny},
	})
	if err != nil {
		t.Fatal(err)
	}
	return v.ID
}

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	r := NewRepository(newTestDB(t))

	created, err := r.Create(ctx, model.Rulepack{Name: "PCI Pack", Version: "1.0", Publisher: "Acme"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.Name != "PCI Pack" || created.Publisher != "Acme" {
		t.Fatalf("created = %+v", created)
	}
	if len(created.Selections) != 0 {
		t.Fatalf("new rulepack should have no selections, got %v", created.Selections)
	}
}

func TestSetSelectionsReplacesRatherThanMerges(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	r := NewRepository(db)

	rp, err := r.Create(ctx, model.Rulepack{Name: "Pack", Version: "1.0"})
	if err != nil {
		t.Fatal(err)
	}

	v1 := sitVersionID(t, db, "SSN")
	v2 := sitVersionID(t, db, "CREDIT_CARD")
	v3 := sitVersionID(t, db, "EMAIL_ADDRESS")

	if err := r.SetSelections(ctx, rp.ID, []string{v1, v2}); err != nil {
		t.Fatalf("first SetSelections() error = %v", err)
	}
	got, err := r.Get(ctx, rp.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Selections) != 2 {
		t.Fatalf("Selections = %v, want 2 entries", got.Selections)
	}

	if err := r.SetSelections(ctx, rp.ID, []string{v3}); err != nil {
		t.Fatalf("second SetSelections() error = %v", err)
	}
	got, err = r.Get(ctx, rp.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Selections) != 1 || got.Selections[0] != v3 {
		t.Fatalf("Selections after replace = %v, want [%s]", got.Selections, v3)
	}
}

func TestListReturnsEveryRulepack(t *testing.T) {
	ctx := context.Background()
	r := NewRepository(newTestDB(t))

	r.Create(ctx, model.Rulepack{Name: "A", Version: "1.0"})
	r.Create(ctx, model.Rulepack{Name: "B", Version: "1.0"})

	all, err := r.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("len(List()) = %d, want 2", len(all))
	}
}
