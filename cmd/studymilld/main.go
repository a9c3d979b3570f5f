package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/studymill/studymill/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "studymilld",
		Short: "Studymill daemon",
		Long:  "Studymill daemon for ingesting course documents and serving retrieval context",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(cli.ServeCmd())
	rootCmd.AddCommand(cli.MigrateCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
