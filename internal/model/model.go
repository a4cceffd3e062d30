// Package model holds the SIT/Rulepack value types shared by the
// repositories (internal/sit, internal/rulepack) and the exporter
// (internal/rulepack/export.go). The dynamic, loosely-typed payloads a
// naive port would use for primary elements and supporting logic become
// tagged variants here instead.
package model

import "time"

// PrimaryElementType distinguishes a SIT version's single primary element.
type PrimaryElementType string

const (
	PrimaryRegex   PrimaryElementType = "regex"
	PrimaryKeyword PrimaryElementType = "keyword"
)

// PrimaryElement is exactly one of Regex(value) or Keyword(value).
type PrimaryElement struct {
	Type  PrimaryElementType
	Value string
}

// LogicMode selects how a version's supporting groups combine.
type LogicMode string

const (
	LogicAny   LogicMode = "ANY"
	LogicAll   LogicMode = "ALL"
	LogicMinN  LogicMode = "MIN_N"
)

// SupportingLogic is Any | All | MinN(n), with MaxN optional in all modes.
type SupportingLogic struct {
	Mode LogicMode
	MinN *int
	MaxN *int
}

// SupportingItemType distinguishes a supporting item's value source.
type SupportingItemType string

const (
	SupportingRegex       SupportingItemType = "regex"
	SupportingKeyword     SupportingItemType = "keyword"
	SupportingKeywordList SupportingItemType = "keyword_list"
)

// SupportingItem is Regex(value) | Keyword(value) | KeywordListRef(id).
type SupportingItem struct {
	Type          SupportingItemType
	Value         string
	KeywordListID string
	Position      int
}

// SupportingGroup owns an ordered set of SupportingItems.
type SupportingGroup struct {
	Name     string
	Position int
	Items    []SupportingItem
}

// SIT is the top-level sensitive-information-type entity.
type SIT struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
	Versions    []SITVersion
}

// SITVersion owns exactly one PrimaryElement and one SupportingLogic, plus
// an ordered list of SupportingGroup.
type SITVersion struct {
	ID               string
	SITID            string
	SITName          string // denormalized for exporter sort convenience
	VersionNumber    int
	EntityType       string
	Confidence       string
	Source           string
	PrimaryElement   PrimaryElement
	SupportingLogic  SupportingLogic
	SupportingGroups []SupportingGroup
	CreatedAt        time.Time
}

// KeywordList is a named, ordered set of keyword values referenced
// non-owningly by SupportingItem.KeywordListID.
type KeywordList struct {
	ID          string
	Name        string
	Description string
	Items       []string
}

// Rulepack owns an unordered set of RulepackSelections by sit_version_id.
type Rulepack struct {
	ID          string
	Name        string
	Version     string
	Description string
	Publisher   string
	Locale      string
	CreatedAt   time.Time
	Selections  []string // sit_version_id
}
