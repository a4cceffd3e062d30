// Purview-schema XML export (component L). Grounded on §4.L's exact
// validation rules, deterministic sort key, and XML shape; built with
// beevik/etree rather than encoding/xml because several parts of the
// output (minN, the whole SupportingElements block) are conditionally
// present and etree's element/attribute builder expresses that far more
// directly than struct-tag marshaling would (see DESIGN.md).
package rulepack

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/beevik/etree"

	"github.com/sitforge/dlpsit/internal/apperr"
	"github.com/sitforge/dlpsit/internal/model"
)

const purviewNamespace = "https://schemas.microsoft.com/office/2011/mce"

// ExportInput wraps the metadata needed to export, independent of how the
// caller assembled the selected versions (repository, test fixture, etc).
type ExportInput struct {
	ID          string
	Name        string
	Version     string
	Description string
	Publisher   string
	Locale      string
}

// KeywordListResolver resolves a keyword_list_id to its entries in
// insertion order, used for SupportingItem.Type == keyword_list.
type KeywordListResolver func(id string) ([]string, error)

// BuildRulePackage validates versions and, if they all pass, renders the
// Purview rule-package XML. Entities are emitted in the deterministic
// order (sit.name asc, version_number asc, id asc) from §4.L.
func BuildRulePackage(rp ExportInput, versions []model.SITVersion, resolveKeywordList KeywordListResolver) ([]byte, error) {
	if len(versions) == 0 {
		return nil, apperr.NewExportValidationError("rulepack export requires at least one selected version")
	}

	sorted := make([]model.SITVersion, len(versions))
	copy(sorted, versions)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].SITName != sorted[j].SITName {
			return sorted[i].SITName < sorted[j].SITName
		}
		if sorted[i].VersionNumber != sorted[j].VersionNumber {
			return sorted[i].VersionNumber < sorted[j].VersionNumber
		}
		return sorted[i].ID < sorted[j].ID
	})

	for _, v := range sorted {
		if err := validateVersion(v, resolveKeywordList); err != nil {
			return nil, err
		}
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version='1.0' encoding='utf-8'`)

	root := doc.CreateElement("RulePackage")
	root.CreateAttr("xmlns", purviewNamespace)
	root.CreateAttr("id", rp.ID)
	root.CreateAttr("name", rp.Name)
	root.CreateAttr("version", rp.Version)
	if rp.Description != "" {
		root.CreateAttr("description", rp.Description)
	}
	if rp.Publisher != "" {
		root.CreateAttr("publisher", rp.Publisher)
	}
	if rp.Locale != "" {
		root.CreateAttr("locale", rp.Locale)
	}

	rules := root.CreateElement("Rules")
	for _, v := range sorted {
		if err := appendEntity(rules, v, resolveKeywordList); err != nil {
			return nil, err
		}
	}

	doc.Indent(2)
	return doc.WriteToBytes()
}

func appendEntity(rules *etree.Element, v model.SITVersion, resolveKeywordList KeywordListResolver) error {
	entity := rules.CreateElement("Entity")
	entity.CreateAttr("id", v.ID)
	entity.CreateAttr("name", v.SITName)
	if v.EntityType != "" {
		entity.CreateAttr("description", v.EntityType)
	}
	confidence := v.Confidence
	if confidence == "" {
		confidence = "medium"
	}
	entity.CreateAttr("recommendedConfidence", confidence)

	pattern := entity.CreateElement("Pattern")
	pattern.CreateAttr("type", patternTypeLabel(v.PrimaryElement.Type))
	pattern.CreateAttr("value", v.PrimaryElement.Value)

	if len(v.SupportingGroups) == 0 {
		return nil
	}

	supporting := entity.CreateElement("SupportingElements")
	supporting.CreateAttr("mode", string(v.SupportingLogic.Mode))
	if v.SupportingLogic.Mode == model.LogicMinN && v.SupportingLogic.MinN != nil {
		supporting.CreateAttr("minN", fmt.Sprintf("%d", *v.SupportingLogic.MinN))
	}

	for _, group := range v.SupportingGroups {
		for _, item := range group.Items {
			el := supporting.CreateElement("SupportingElement")
			el.CreateAttr("group", group.Name)
			switch item.Type {
			case model.SupportingRegex:
				el.CreateAttr("type", "Regex")
				el.CreateAttr("value", item.Value)
			case model.SupportingKeyword:
				el.CreateAttr("type", "Keyword")
				el.CreateAttr("value", item.Value)
			case model.SupportingKeywordList:
				values, err := resolveKeywordList(item.KeywordListID)
				if err != nil {
					return apperr.NewExportValidationError("version %s: keyword list %s: %v", v.ID, item.KeywordListID, err)
				}
				el.CreateAttr("type", "Keyword")
				el.CreateAttr("value", strings.Join(values, ","))
			}
		}
	}
	return nil
}

func patternTypeLabel(t model.PrimaryElementType) string {
	if t == model.PrimaryRegex {
		return "Regex"
	}
	return "Keyword"
}

// validateVersion runs every rule in §4.L in order, aborting on the first
// failure with a message naming the offending version id.
func validateVersion(v model.SITVersion, resolveKeywordList KeywordListResolver) error {
	switch v.PrimaryElement.Type {
	case model.PrimaryRegex:
		if _, err := regexp.Compile(v.PrimaryElement.Value); err != nil {
			return apperr.NewExportValidationError("version %s: primary regex does not compile: %v", v.ID, err)
		}
	case model.PrimaryKeyword:
		if strings.TrimSpace(v.PrimaryElement.Value) == "" {
			return apperr.NewExportValidationError("version %s: primary keyword value is empty", v.ID)
		}
	default:
		return apperr.NewExportValidationError("version %s: missing primary element", v.ID)
	}

	modeNeedsGroups := v.SupportingLogic.Mode == model.LogicAny || v.SupportingLogic.Mode == model.LogicAll || v.SupportingLogic.Mode == model.LogicMinN
	if modeNeedsGroups && len(v.SupportingGroups) > 0 {
		for _, g := range v.SupportingGroups {
			if len(g.Items) == 0 {
				return apperr.NewExportValidationError("version %s: supporting group %q has no items", v.ID, g.Name)
			}
		}
	}

	if v.SupportingLogic.Mode == model.LogicMinN {
		if v.SupportingLogic.MinN == nil || *v.SupportingLogic.MinN < 1 {
			return apperr.NewExportValidationError("version %s: MIN_N logic requires min_n >= 1", v.ID)
		}
	}

	for _, g := range v.SupportingGroups {
		for _, item := range g.Items {
			switch item.Type {
			case model.SupportingRegex:
				if _, err := regexp.Compile(item.Value); err != nil {
					return apperr.NewExportValidationError("version %s: supporting regex does not compile: %v", v.ID, err)
				}
			case model.SupportingKeyword:
				if strings.TrimSpace(item.Value) == "" {
					return apperr.NewExportValidationError("version %s: supporting keyword value is empty", v.ID)
				}
			case model.SupportingKeywordList:
				if item.KeywordListID == "" {
					return apperr.NewExportValidationError("version %s: keyword-list item has no list reference", v.ID)
				}
				values, err := resolveKeywordList(item.KeywordListID)
				if err != nil || len(values) == 0 {
					return apperr.NewExportValidationError("version %s: keyword list %s is missing or empty", v.ID, item.KeywordListID)
				}
			}
		}
	}

	return nil
}
