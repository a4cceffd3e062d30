package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sitforge/dlpsit/internal/keywordlist"
	"github.com/sitforge/dlpsit/internal/model"
	"github.com/sitforge/dlpsit/internal/sit"
	"github.com/sitforge/dlpsit/internal/store"
)

var sitCmd = &cobra.Command{
	Use:   "sit",
	Short: "Manage sensitive-information-type definitions",
}

var (
	sitCreateDescription string
)

var sitCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new, versionless SIT",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.Open(cfg.StoragePath)
		if err != nil {
			return err
		}
		defer db.Close()

		created, err := sit.NewRepository(db).CreateSIT(context.Background(), args[0], sitCreateDescription)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created SIT %s (%s)\n", created.Name, created.ID)
		return nil
	},
}

var (
	versionSITID      string
	versionEntity     string
	versionConfidence string
	versionSource     string
	versionPrimary    string
	versionPrimaryVal string
	versionLogicMode  string
	versionMinN       int
	versionKeywords   []string
)

var sitVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Create a new version for a SIT (primary element plus a flat keyword supporting group)",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.Open(cfg.StoragePath)
		if err != nil {
			return err
		}
		defer db.Close()

		v := model.SITVersion{
			EntityType: versionEntity,
			Confidence: versionConfidence,
			Source:     versionSource,
			PrimaryElement: model.PrimaryElement{
				Type:  model.PrimaryElementType(versionPrimary),
				Value: versionPrimaryVal,
			},
			SupportingLogic: model.SupportingLogic{Mode: model.LogicMode(strings.ToUpper(versionLogicMode))},
		}
		if v.SupportingLogic.Mode == model.LogicMinN {
			n := versionMinN
			v.SupportingLogic.MinN = &n
		}
		if len(versionKeywords) > 0 {
			items := make([]model.SupportingItem, len(versionKeywords))
			for i, kw := range versionKeywords {
				items[i] = model.SupportingItem{Type: model.SupportingKeyword, Value: kw, Position: i}
			}
			v.SupportingGroups = []model.SupportingGroup{{Name: "keywords", Position: 0, Items: items}}
		}

		created, err := sit.NewRepository(db).CreateVersion(context.Background(), versionSITID, v)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created version %d for SIT %s (%s)\n", created.VersionNumber, versionSITID, created.ID)
		return nil
	},
}

var sitListCmd = &cobra.Command{
	Use:   "list",
	Short: "List SITs and their versions",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.Open(cfg.StoragePath)
		if err != nil {
			return err
		}
		defer db.Close()

		sits, err := sit.NewRepository(db).ListSITs(context.Background())
		if err != nil {
			return err
		}
		for _, s := range sits {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d version(s)\n", s.ID, s.Name, len(s.Versions))
		}
		return nil
	},
}

var (
	keywordListName        string
	keywordListDescription string
	keywordListItems       []string
)

var keywordListCreateCmd = &cobra.Command{
	Use:   "keyword-list",
	Short: "Create a named keyword list for use in keyword_list supporting items",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.Open(cfg.StoragePath)
		if err != nil {
			return err
		}
		defer db.Close()

		created, err := keywordlist.NewRepository(db).Create(context.Background(), keywordListName, keywordListDescription, keywordListItems)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created keyword list %s (%s) with %d item(s)\n", created.Name, created.ID, len(created.Items))
		return nil
	},
}

func init() {
	sitCreateCmd.Flags().StringVar(&sitCreateDescription, "description", "", "SIT description")

	sitVersionCmd.Flags().StringVar(&versionSITID, "sit-id", "", "SIT id to add a version to (required)")
	sitVersionCmd.Flags().StringVar(&versionEntity, "entity-type", "", "entity type this version recognizes")
	sitVersionCmd.Flags().StringVar(&versionConfidence, "confidence", "", "recommended confidence (low|medium|high)")
	sitVersionCmd.Flags().StringVar(&versionSource, "source", "", "provenance label for this version")
	sitVersionCmd.Flags().StringVar(&versionPrimary, "primary-type", "regex", "primary element type: regex|keyword")
	sitVersionCmd.Flags().StringVar(&versionPrimaryVal, "primary-value", "", "primary element value (required)")
	sitVersionCmd.Flags().StringVar(&versionLogicMode, "logic", "any", "supporting logic: any|all|min_n")
	sitVersionCmd.Flags().IntVar(&versionMinN, "min-n", 1, "minimum matching supporting items when --logic=min_n")
	sitVersionCmd.Flags().StringSliceVar(&versionKeywords, "keyword", nil, "supporting keyword (repeatable)")
	sitVersionCmd.MarkFlagRequired("sit-id")
	sitVersionCmd.MarkFlagRequired("primary-value")

	keywordListCreateCmd.Flags().StringVar(&keywordListName, "name", "", "keyword list name (required)")
	keywordListCreateCmd.Flags().StringVar(&keywordListDescription, "description", "", "keyword list description")
	keywordListCreateCmd.Flags().StringSliceVar(&keywordListItems, "item", nil, "keyword list entry (repeatable)")
	keywordListCreateCmd.MarkFlagRequired("name")

	sitCmd.AddCommand(sitCreateCmd, sitVersionCmd, sitListCmd, keywordListCreateCmd)
}
