package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sitforge/dlpsit/internal/keywordlist"
	"github.com/sitforge/dlpsit/internal/model"
	"github.com/sitforge/dlpsit/internal/rulepack"
	"github.com/sitforge/dlpsit/internal/sit"
	"github.com/sitforge/dlpsit/internal/store"
)

var rulepackCmd = &cobra.Command{
	Use:   "rulepack",
	Short: "Manage rulepacks and export them as Purview-compatible XML",
}

var (
	rpName        string
	rpVersion     string
	rpDescription string
	rpPublisher   string
	rpLocale      string
)

var rulepackCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new, empty rulepack",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.Open(cfg.StoragePath)
		if err != nil {
			return err
		}
		defer db.Close()

		created, err := rulepack.NewRepository(db).Create(context.Background(), model.Rulepack{
			Name: rpName, Version: rpVersion, Description: rpDescription, Publisher: rpPublisher, Locale: rpLocale,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created rulepack %s (%s)\n", created.Name, created.ID)
		return nil
	},
}

var (
	selectRulepackID string
	selectVersionIDs []string
)

var rulepackSelectCmd = &cobra.Command{
	Use:   "select",
	Short: "Replace a rulepack's selected SIT versions",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.Open(cfg.StoragePath)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := rulepack.NewRepository(db).SetSelections(context.Background(), selectRulepackID, selectVersionIDs); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "rulepack %s now selects %d version(s)\n", selectRulepackID, len(selectVersionIDs))
		return nil
	},
}

var (
	exportRulepackID string
	exportOutput     string
)

var rulepackExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a rulepack's selected SIT versions as Purview rule-package XML",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.Open(cfg.StoragePath)
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := context.Background()
		rulepacks := rulepack.NewRepository(db)
		sits := sit.NewRepository(db)
		keywordLists := keywordlist.NewRepository(db)

		rp, err := rulepacks.Get(ctx, exportRulepackID)
		if err != nil {
			return fmt.Errorf("loading rulepack %s: %w", exportRulepackID, err)
		}

		versions, err := sits.GetVersionsByIDs(ctx, rp.Selections)
		if err != nil {
			return fmt.Errorf("loading selected versions: %w", err)
		}

		xmlBytes, err := rulepack.BuildRulePackage(rulepack.ExportInput{
			ID: rp.ID, Name: rp.Name, Version: rp.Version,
			Description: rp.Description, Publisher: rp.Publisher, Locale: rp.Locale,
		}, versions, func(id string) ([]string, error) {
			kl, err := keywordLists.Get(ctx, id)
			if err != nil {
				return nil, err
			}
			return kl.Items, nil
		})
		if err != nil {
			return fmt.Errorf("building rule package: %w", err)
		}

		if exportOutput == "" || exportOutput == "-" {
			_, err := cmd.OutOrStdout().Write(xmlBytes)
			return err
		}
		return os.WriteFile(exportOutput, xmlBytes, 0o644)
	},
}

func init() {
	rulepackCreateCmd.Flags().StringVar(&rpName, "name", "", "rulepack name (required)")
	rulepackCreateCmd.Flags().StringVar(&rpVersion, "version", "1.0", "rulepack version")
	rulepackCreateCmd.Flags().StringVar(&rpDescription, "description", "", "rulepack description")
	rulepackCreateCmd.Flags().StringVar(&rpPublisher, "publisher", "", "rulepack publisher")
	rulepackCreateCmd.Flags().StringVar(&rpLocale, "locale", "", "rulepack locale")
	rulepackCreateCmd.MarkFlagRequired("name")

	rulepackSelectCmd.Flags().StringVar(&selectRulepackID, "rulepack-id", "", "rulepack id (required)")
	rulepackSelectCmd.Flags().StringSliceVar(&selectVersionIDs, "version-id", nil, "SIT version id to select (repeatable)")
	rulepackSelectCmd.MarkFlagRequired("rulepack-id")

	rulepackExportCmd.Flags().StringVar(&exportRulepackID, "rulepack-id", "", "rulepack id (required)")
	rulepackExportCmd.Flags().StringVar(&exportOutput, "output", "", "output file path (default: stdout)")
	rulepackExportCmd.MarkFlagRequired("rulepack-id")

	rulepackCmd.AddCommand(rulepackCreateCmd, rulepackSelectCmd, rulepackExportCmd)
}
