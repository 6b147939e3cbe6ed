package commands

import (
	"fmt"
	"strings"

	"github.com/Azalea224/butler-service-backend/internal/database"
	"github.com/Azalea224/butler-service-backend/internal/models"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/ulule/limiter/v3"
)

// NewRatelimitCmd creates the ratelimit configuration command with list and set subcommands.
// The stored rate applies per client IP across /api/v1.
func NewRatelimitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ratelimit",
		Short: "Manage the per-IP rate limit",
		Long:  "List or update the per-IP API rate limit (e.g. 5-S, 100-M). Stored in database.",
	}
	cmd.AddCommand(newRatelimitListCmd())
	cmd.AddCommand(newRatelimitSetCmd())
	return cmd
}

func newRatelimitListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List current rate limit configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, closeDB, err := openDB()
			if err != nil {
				return err
			}
			defer closeDB()

			c, err := database.NewRatelimitConfigRepository(db).Get(contextOf(cmd))
			if err != nil {
				return fmt.Errorf("get ratelimit config: %w", err)
			}
			if c == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "No rate limit configuration in database. Use 'ratelimit set' to add one.")
				return nil
			}
			tw := newTable(cmd.OutOrStdout())
			tw.AppendHeader(table.Row{"Rate", "Updated"})
			tw.AppendRow(table.Row{c.Rate, c.UpdatedAt.Format("2006-01-02 15:04:05")})
			tw.Render()
			return nil
		},
	}
}

func newRatelimitSetCmd() *cobra.Command {
	var rate string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set rate limit configuration",
		Long:  "Update rate limit (e.g. 5-S, 100-M, 1000-H). Stored in database.",
		RunE: func(cmd *cobra.Command, args []string) error {
			rate = strings.TrimSpace(rate)
			if rate == "" {
				return fmt.Errorf("--rate is required (e.g. 5-S, 100-M)")
			}
			// Reject what the server's reloader would refuse to apply
			if _, err := limiter.NewRateFromFormatted(rate); err != nil {
				return fmt.Errorf("invalid --rate %q: %w", rate, err)
			}
			db, closeDB, err := openDB()
			if err != nil {
				return err
			}
			defer closeDB()

			c := &models.RatelimitConfig{Rate: rate}
			if err := database.NewRatelimitConfigRepository(db).Set(contextOf(cmd), c); err != nil {
				return fmt.Errorf("set ratelimit config: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Rate limit configuration updated.")
			return nil
		},
	}
	cmd.Flags().StringVar(&rate, "rate", "", "Rate (e.g. 5-S, 100-M, 1000-H) (required)")
	return cmd
}
