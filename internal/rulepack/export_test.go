package rulepack

import (
	"errors"
	"strings"
	"testing"

	"github.com/sitforge/dlpsit/internal/apperr"
	"github.com/sitforge/dlpsit/internal/model"
)

func intPtr(n int) *int { return &n }

func alphaSIT() model.SITVersion {
	return model.SITVersion{
		ID:             "alpha-v1",
		SITName:        "Alpha SIT",
		VersionNumber:  1,
		EntityType:     "SSN",
		PrimaryElement: model.PrimaryElement{Type: model.PrimaryRegex, Value: `\b\d{3}-\d{2}-\d{4}\b`},
		SupportingLogic: model.SupportingLogic{Mode: model.LogicAny},
		SupportingGroups: []model.SupportingGroup{
			{Name: "context", Position: 0, Items: []model.SupportingItem{
				{Type: model.SupportingKeyword, Value: "social", Position: 0},
			}},
		},
	}
}

func betaSIT() model.SITVersion {
	minN := 2
	return model.SITVersion{
		ID:             "beta-v1",
		SITName:        "Beta SIT",
		VersionNumber:  1,
		EntityType:     "CREDIT_CARD",
		PrimaryElement: model.PrimaryElement{Type: model.PrimaryRegex, Value: `\b(?:\d[ -]*?){13,19}\b`},
		SupportingLogic: model.SupportingLogic{Mode: model.LogicMinN, MinN: &minN},
		SupportingGroups: []model.SupportingGroup{
			{Name: "brands", Position: 0, Items: []model.SupportingItem{
				{Type: model.SupportingKeywordList, KeywordListID: "brands-list", Position: 0},
			}},
		},
	}
}

func resolveBrandsList(id string) ([]string, error) {
	if id == "brands-list" {
		return []string{"visa", "mastercard"}, nil
	}
	return nil, nil
}

func TestBuildRulePackageScenarioS5(t *testing.T) {
	rp := ExportInput{ID: "rp-1", Name: "Test Pack", Version: "1.0"}
	xmlBytes, err := BuildRulePackage(rp, []model.SITVersion{betaSIT(), alphaSIT()}, resolveBrandsList)
	if err != nil {
		t.Fatalf("BuildRulePackage() error = %v", err)
	}
	xmlStr := string(xmlBytes)

	if !strings.HasPrefix(xmlStr, "<?xml version='1.0' encoding='utf-8'?>") {
		t.Fatalf("missing or wrong xml declaration: %q", xmlStr[:60])
	}
	if !strings.Contains(xmlStr, `<RulePackage`) || !strings.Contains(xmlStr, purviewNamespace) {
		t.Fatalf("root element/namespace missing: %q", xmlStr)
	}

	alphaIdx := strings.Index(xmlStr, `name="Alpha SIT"`)
	betaIdx := strings.Index(xmlStr, `name="Beta SIT"`)
	if alphaIdx == -1 || betaIdx == -1 || alphaIdx > betaIdx {
		t.Fatalf("entities not ordered Alpha before Beta: %q", xmlStr)
	}

	betaBlock := xmlStr[betaIdx:]
	if !strings.Contains(betaBlock, `mode="MIN_N"`) {
		t.Fatalf("beta missing MIN_N mode: %q", betaBlock)
	}
	if !strings.Contains(betaBlock, `minN="2"`) {
		t.Fatalf("beta missing minN attribute: %q", betaBlock)
	}
	if !strings.Contains(betaBlock, `type="Keyword"`) || !strings.Contains(betaBlock, `value="visa,mastercard"`) {
		t.Fatalf("beta supporting element not rendered as comma-joined keyword list: %q", betaBlock)
	}
}

func TestBuildRulePackageEmptyVersionsRejected(t *testing.T) {
	_, err := BuildRulePackage(ExportInput{ID: "x", Name: "x", Version: "1"}, nil, resolveBrandsList)
	if err == nil {
		t.Fatal("expected an error for empty versions")
	}
	var exportErr *apperr.ExportValidationError
	if !errors.As(err, &exportErr) {
		t.Fatalf("expected ExportValidationError, got %v", err)
	}
}

func TestBuildRulePackageInvalidRegexRejected(t *testing.T) {
	v := alphaSIT()
	v.PrimaryElement.Value = "[unterminated"
	_, err := BuildRulePackage(ExportInput{ID: "x", Name: "x", Version: "1"}, []model.SITVersion{v}, resolveBrandsList)
	if err == nil {
		t.Fatal("expected a validation error for a non-compiling regex")
	}
}

func TestBuildRulePackageMinNWithoutValueRejected(t *testing.T) {
	v := betaSIT()
	v.SupportingLogic.MinN = nil
	_, err := BuildRulePackage(ExportInput{ID: "x", Name: "x", Version: "1"}, []model.SITVersion{v}, resolveBrandsList)
	if err == nil {
		t.Fatal("expected a validation error when MIN_N lacks min_n")
	}
}

func TestBuildRulePackageDeterministicOutput(t *testing.T) {
	rp := ExportInput{ID: "rp-1", Name: "Test Pack", Version: "1.0"}
	first, err := BuildRulePackage(rp, []model.SITVersion{betaSIT(), alphaSIT()}, resolveBrandsList)
	if err != nil {
		t.Fatal(err)
	}
	second, err := BuildRulePackage(rp, []model.SITVersion{alphaSIT(), betaSIT()}, resolveBrandsList)
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Fatalf("export not deterministic under input reordering:\n%s\n---\n%s", first, second)
	}
}
