package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/fyerfyer/penalty-amount/config"
	"github.com/fyerfyer/penalty-amount/internal/models"
	"github.com/fyerfyer/penalty-amount/internal/repository"
)

var showOpts struct {
	id     string
	run    string
	failed bool
	limit  int
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show persisted results from the database",
	Example: `  penalty-amount show --id 2021-001
  penalty-amount show --run 6f1c... --failed`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showOpts.id == "" && showOpts.run == "" {
			return fmt.Errorf("either --id or --run is required")
		}

		a, err := loadApp(func(cfg *config.Config) {
			cfg.Database.Enable = true
		})
		if err != nil {
			return err
		}
		defer a.Close()

		db, err := a.database()
		if err != nil {
			return err
		}
		repo := repository.NewAmountRepositoryWithDB(db)

		if showOpts.id != "" {
			row, err := repo.GetByID(cmd.Context(), showOpts.id)
			if err != nil {
				return err
			}
			return printAmount(cmd, row)
		}

		filters := map[string]interface{}{"run_id": showOpts.run}
		if showOpts.failed {
			filters["status"] = models.AmountStatusFailed
		}
		rows, total, err := repo.List(cmd.Context(), 0, showOpts.limit, filters)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, row := range rows {
			fmt.Fprintf(out, "%s\t%.2f\t%.2f\t%.2f\t%s\n",
				row.ID, row.FineAmount, row.ConfiscateAmount, row.Amount, row.Status)
		}
		fmt.Fprintf(out, "%d of %d results\n", len(rows), total)
		return nil
	},
}

func init() {
	f := showCmd.Flags()
	f.StringVar(&showOpts.id, "id", "", "document id")
	f.StringVar(&showOpts.run, "run", "", "list the results of a run")
	f.BoolVar(&showOpts.failed, "failed", false, "only list failed results")
	f.IntVar(&showOpts.limit, "limit", 50, "maximum number of results to list, 0 for all")
}

// printAmount 输出单个文书的结果与各类别诊断
func printAmount(cmd *cobra.Command, row *models.PenaltyAmount) error {
	diags, err := row.GetDiagnostics()
	if err != nil {
		return fmt.Errorf("failed to decode diagnostics: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "id:                %s\n", row.ID)
	fmt.Fprintf(out, "run:               %s\n", row.RunID)
	fmt.Fprintf(out, "fine_amount:       %.2f\n", row.FineAmount)
	fmt.Fprintf(out, "confiscate_amount: %.2f\n", row.ConfiscateAmount)
	fmt.Fprintf(out, "amount:            %.2f\n", row.Amount)
	fmt.Fprintf(out, "status:            %s\n", row.Status)

	flags := make([]string, 0, len(diags))
	for flag := range diags {
		flags = append(flags, flag)
	}
	sort.Strings(flags)
	for _, flag := range flags {
		d := diags[flag]
		if d.Error != "" {
			fmt.Fprintf(out, "  %s: %s (%s)\n", flag, d.Outcome, d.Error)
			continue
		}
		fmt.Fprintf(out, "  %s: %s\n", flag, d.Outcome)
	}
	return nil
}
