package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:     "huetone",
		Short:   "huetone — cache and quota tooling for the paint-visualization client",
		Version: version,
	}

	root.AddCommand(
		newCacheCmd(),
		newQuotaCmd(),
		newHistoryCmd(),
		newHashCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
