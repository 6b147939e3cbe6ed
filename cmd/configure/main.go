package main

import (
	"fmt"
	"os"

	"github.com/Azalea224/butler-service-backend/cmd/configure/commands"
	"github.com/spf13/cobra"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "butler-configure",
		Short: "Configuration tool for the Butler service",
		Long:  "CLI tool for managing CORS and rate limit settings, inspecting users and checking the model connection",
	}

	rootCmd.AddCommand(commands.NewCorsCmd())
	rootCmd.AddCommand(commands.NewRatelimitCmd())
	rootCmd.AddCommand(commands.NewUsersCmd())
	rootCmd.AddCommand(commands.NewTestCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
