package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fyerfyer/penalty-amount/config"
	"github.com/fyerfyer/penalty-amount/internal/models"
	"github.com/fyerfyer/penalty-amount/internal/pipeline"
	"github.com/fyerfyer/penalty-amount/internal/repository"
)

var importInput string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load a CSV file into the document table",
	RunE: func(cmd *cobra.Command, args []string) error {
		if importInput == "" {
			return fmt.Errorf("--input is required")
		}

		a, err := loadApp(func(cfg *config.Config) {
			cfg.Database.Enable = true
		})
		if err != nil {
			return err
		}
		defer a.Close()

		f, err := os.Open(importInput)
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()

		docs, err := pipeline.ReadDocuments(f)
		if err != nil {
			return err
		}

		db, err := a.database()
		if err != nil {
			return err
		}

		source := filepath.Base(importInput)
		rows := make([]*models.PenaltyDocument, 0, len(docs))
		for _, d := range docs {
			if d.ID == "" {
				a.logger.WithField("source", source).Warn("Skipping document without id")
				continue
			}
			rows = append(rows, &models.PenaltyDocument{ID: d.ID, Content: d.Content, Source: source})
		}
		if err := repository.NewDocumentRepositoryWithDB(db).SaveBatch(cmd.Context(), rows); err != nil {
			return fmt.Errorf("failed to import documents: %w", err)
		}

		a.logger.WithFields(logrus.Fields{
			"source":    source,
			"documents": len(rows),
		}).Info("Documents imported")
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d documents from %s\n", len(rows), source)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVarP(&importInput, "input", "i", "", "CSV with id and content columns")
}
