package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/Azalea224/butler-service-backend/internal/database"
	"github.com/Azalea224/butler-service-backend/internal/models"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// NewUsersCmd creates the users command
func NewUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Inspect registered users",
	}
	cmd.AddCommand(newUsersListCmd())
	return cmd
}

func newUsersListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, closeDB, err := openDB()
			if err != nil {
				return err
			}
			defer closeDB()

			users, err := database.NewUserRepository(db).List(contextOf(cmd), limit)
			if err != nil {
				return err
			}
			renderUsers(cmd.OutOrStdout(), users)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of users to show")
	return cmd
}

func renderUsers(out io.Writer, users []*models.User) {
	if len(users) == 0 {
		fmt.Fprintln(out, "No users registered")
		return
	}
	tw := newTable(out)
	tw.AppendHeader(table.Row{"ID", "Email", "Name", "Baseline", "Core Values", "Last Active"})
	for _, u := range users {
		lastActive := "never"
		if u.LastActiveAt != nil {
			lastActive = u.LastActiveAt.Format("2006-01-02 15:04")
		}
		tw.AppendRow(table.Row{u.ID, u.Email, u.Name, u.BaselineEnergy, strings.Join(u.CoreValues, ", "), lastActive})
	}
	tw.AppendFooter(table.Row{"", "", "", "", "Total", len(users)})
	tw.Render()
}
