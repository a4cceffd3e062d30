package sit

import (
	"context"
	"testing"

	"github.com/sitforge/dlpsit/internal/model"
	"github.com/sitforge/dlpsit/internal/store"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewRepository(db)
}

func sampleVersion(entityType string) model.SITVersion {
	return model.SITVersion{
		EntityType:     entityType,
		PrimaryElement: model.PrimaryElement{Type: model.PrimaryRegex, Value: `\b\d{3}-\d{2}-\d{4}\b`},
		SupportingLogic: model.SupportingLogic{Mode: model.LogicAny},
		SupportingGroups: []model.SupportingGroup{
			{Name: "context", Position: 0, Items: []model.SupportingItem{
				{Type: model.SupportingKeyword, Value: "ssn", Position: 0},
			}},
		},
	}
}

// TestCreateVersionAssignsDenseVersionNumbers is scenario S4: creating a
// SIT and two successive versions must yield version_numbers 1 and 2.
func TestCreateVersionAssignsDenseVersionNumbers(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	s, err := r.CreateSIT(ctx, "US_SSN", "US social security number")
	if err != nil {
		t.Fatalf("CreateSIT() error = %v", err)
	}

	v1, err := r.CreateVersion(ctx, s.ID, sampleVersion("SSN"))
	if err != nil {
		t.Fatalf("first CreateVersion() error = %v", err)
	}
	if v1.VersionNumber != 1 {
		t.Fatalf("first VersionNumber = %d, want 1", v1.VersionNumber)
	}

	v2, err := r.CreateVersion(ctx, s.ID, sampleVersion("SSN"))
	if err != nil {
		t.Fatalf("second CreateVersion() error = %v", err)
	}
	if v2.VersionNumber != 2 {
		t.Fatalf("second VersionNumber = %d, want 2", v2.VersionNumber)
	}

	if len(v2.SupportingGroups) != 1 || len(v2.SupportingGroups[0].Items) != 1 {
		t.Fatalf("supporting groups not round-tripped: %+v", v2.SupportingGroups)
	}
	if v2.SupportingGroups[0].Items[0].Value != "ssn" {
		t.Fatalf("supporting item value = %q, want %q", v2.SupportingGroups[0].Items[0].Value, "ssn")
	}
}

func TestListSITsEagerlyLoadsVersions(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	s, err := r.CreateSIT(ctx, "CREDIT_CARD", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.CreateVersion(ctx, s.ID, sampleVersion("CREDIT_CARD")); err != nil {
		t.Fatal(err)
	}

	sits, err := r.ListSITs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(sits) != 1 {
		t.Fatalf("len(sits) = %d, want 1", len(sits))
	}
	if len(sits[0].Versions) != 1 {
		t.Fatalf("len(Versions) = %d, want 1", len(sits[0].Versions))
	}
}

func TestGetVersionsByIDsReturnsFullValueTree(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	s, _ := r.CreateSIT(ctx, "EMAIL", "")
	v, err := r.CreateVersion(ctx, s.ID, sampleVersion("EMAIL_ADDRESS"))
	if err != nil {
		t.Fatal(err)
	}

	versions, err := r.GetVersionsByIDs(ctx, []string{v.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(versions) != 1 {
		t.Fatalf("len(versions) = %d, want 1", len(versions))
	}
	if versions[0].PrimaryElement.Value != v.PrimaryElement.Value {
		t.Fatalf("primary element not round-tripped: got %q, want %q", versions[0].PrimaryElement.Value, v.PrimaryElement.Value)
	}
}
