package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyerfyer/penalty-amount/config"
	"github.com/fyerfyer/penalty-amount/internal/amount"
	"github.com/fyerfyer/penalty-amount/internal/normalize"
	"github.com/fyerfyer/penalty-amount/internal/repository"
)

var (
	extractText string
	extractID   string
	extractJSON bool
	cutFirst    bool
)

// extractOutput extract 命令的 JSON 输出
type extractOutput struct {
	ID                string  `json:"id"`
	FineAmount        float64 `json:"fine_amount"`
	ConfiscateAmount  float64 `json:"confiscate_amount"`
	Amount            float64 `json:"amount"`
	FineOutcome       string  `json:"fine_outcome"`
	ConfiscateOutcome string  `json:"confiscate_outcome"`
	Normalized        string  `json:"normalized,omitempty"`
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Compute the amounts of a single text (from --text, --id or stdin)",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(func(cfg *config.Config) {
			if extractID != "" {
				cfg.Database.Enable = true
			}
		})
		if err != nil {
			return err
		}
		defer a.Close()

		doc, err := extractDocument(cmd, a)
		if err != nil {
			return err
		}

		agg, err := a.aggregator()
		if err != nil {
			return err
		}
		rec := agg.Compute(cmd.Context(), doc)

		out := extractOutput{
			ID:                rec.ID,
			FineAmount:        rec.Fine.Value,
			ConfiscateAmount:  rec.Confiscation.Value,
			Amount:            rec.Amount(),
			FineOutcome:       string(rec.Fine.Outcome),
			ConfiscateOutcome: string(rec.Confiscation.Outcome),
			Normalized:        agg.Prepare(doc.Content),
		}

		w := cmd.OutOrStdout()
		if extractJSON {
			enc := json.NewEncoder(w)
			enc.SetEscapeHTML(false)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}
		fmt.Fprintf(w, "fine_amount:       %.2f (%s)\n", out.FineAmount, out.FineOutcome)
		fmt.Fprintf(w, "confiscate_amount: %.2f (%s)\n", out.ConfiscateAmount, out.ConfiscateOutcome)
		fmt.Fprintf(w, "amount:            %.2f\n", out.Amount)
		return nil
	},
}

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Print the normalized form of a text (from --text or stdin)",
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readText(cmd)
		if err != nil {
			return err
		}
		if cutFirst {
			text = amount.Cut(text)
		}
		fmt.Fprintln(cmd.OutOrStdout(), normalize.New().Normalize(text))
		return nil
	},
}

func init() {
	extractCmd.Flags().StringVarP(&extractText, "text", "t", "", "document text, read from stdin when empty")
	extractCmd.Flags().StringVar(&extractID, "id", "", "load the text of this document from the document table")
	extractCmd.Flags().BoolVar(&extractJSON, "json", false, "print the result as JSON")

	normalizeCmd.Flags().StringVarP(&extractText, "text", "t", "", "text to normalize, read from stdin when empty")
	normalizeCmd.Flags().BoolVar(&cutFirst, "cut", false, "drop everything before the decision section first")
}

// extractDocument 按 --id 从文书表读取，否则读取 --text 或标准输入
func extractDocument(cmd *cobra.Command, a *app) (amount.Document, error) {
	if extractID == "" {
		text, err := readText(cmd)
		if err != nil {
			return amount.Document{}, err
		}
		return amount.Document{ID: "stdin", Content: text}, nil
	}

	db, err := a.database()
	if err != nil {
		return amount.Document{}, err
	}
	doc, err := repository.NewDocumentRepositoryWithDB(db).GetByID(cmd.Context(), extractID)
	if err != nil {
		return amount.Document{}, err
	}
	return amount.Document{ID: doc.ID, Content: doc.Content}, nil
}

func readText(cmd *cobra.Command) (string, error) {
	if extractText != "" {
		return extractText, nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("no text given, use --text or pipe it to stdin")
	}
	return text, nil
}
