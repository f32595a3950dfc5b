// kpiwatch polls a KPI source from the terminal and prints the extracted table.
//
// Usage:
//
//	kpiwatch --url=http://board:8080/api/kpi
//	kpiwatch --kind=csv --url='https://docs.google.com/.../export?format=csv' --once
//	kpiwatch --json --once
//
// Without --url the source settings come from the same configuration the
// server uses (KPI_SOURCE_* and the bare SPREADSHEET_ID etc.).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"kpiboard/pkg/contracts"
)

var rootCmd = &cobra.Command{
	Use:   "kpiwatch",
	Short: "Watch the KPI board from the terminal",
	Long:  "kpiwatch reads a KPI source on an interval, extracts the seven KPI rows\nand prints them as a table or JSON.",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.Version = contracts.Version
	bindFlags(rootCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
