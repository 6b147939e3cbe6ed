package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Azalea224/butler-service-backend/internal/database"
	"github.com/Azalea224/butler-service-backend/internal/models"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// NewCorsCmd creates the cors configuration command with list and set subcommands.
// The server picks up changes on its next reload, within a minute.
func NewCorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cors",
		Short: "Manage CORS configuration",
		Long:  "List or update CORS allowed origins and options (stored in database).",
	}
	cmd.AddCommand(newCorsListCmd())
	cmd.AddCommand(newCorsSetCmd())
	return cmd
}

func newCorsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List current CORS configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, closeDB, err := openDB()
			if err != nil {
				return err
			}
			defer closeDB()

			c, err := database.NewCorsConfigRepository(db).Get(contextOf(cmd))
			if err != nil {
				return fmt.Errorf("get cors config: %w", err)
			}
			renderCorsConfig(cmd.OutOrStdout(), c)
			return nil
		},
	}
}

func renderCorsConfig(out io.Writer, c *models.CorsConfig) {
	if c == nil {
		fmt.Fprintln(out, "No CORS configuration in database. Use 'cors set' to add one.")
		return
	}
	tw := newTable(out)
	tw.AppendHeader(table.Row{"Origin", "Credentials", "Max-Age"})
	for _, origin := range database.AllowedOriginsSlice(c.AllowedOrigins) {
		tw.AppendRow(table.Row{origin, c.AllowCredentials, c.MaxAge})
	}
	tw.Render()
}

func newCorsSetCmd() *cobra.Command {
	var origins string
	var allowCreds bool
	var maxAge int
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set CORS configuration",
		Long:  "Update CORS allowed origins (comma-separated). Stored in database.",
		RunE: func(cmd *cobra.Command, args []string) error {
			origins = strings.TrimSpace(origins)
			if origins == "" {
				return fmt.Errorf("--origins is required (comma-separated list)")
			}
			if maxAge < 0 {
				return fmt.Errorf("--max-age must not be negative")
			}
			db, closeDB, err := openDB()
			if err != nil {
				return err
			}
			defer closeDB()

			c := &models.CorsConfig{
				AllowedOrigins:   origins,
				AllowCredentials: allowCreds,
				MaxAge:           maxAge,
			}
			if err := database.NewCorsConfigRepository(db).Set(contextOf(cmd), c); err != nil {
				return fmt.Errorf("set cors config: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "CORS configuration updated.")
			return nil
		},
	}
	cmd.Flags().StringVar(&origins, "origins", "", "Comma-separated allowed origins (required)")
	cmd.Flags().BoolVar(&allowCreds, "allow-credentials", true, "Allow credentials")
	cmd.Flags().IntVar(&maxAge, "max-age", 86400, "Access-Control-Max-Age (seconds)")
	return cmd
}

// contextOf returns the command context, which is nil when a command runs outside Execute
func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
