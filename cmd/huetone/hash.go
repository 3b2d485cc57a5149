package main

import (
	"fmt"
	"os"

	"github.com/huetone-ai/huetone/pkg/imagehash"
	"github.com/spf13/cobra"
)

func newHashCmd() *cobra.Command {
	var fallback bool

	cmd := &cobra.Command{
		Use:   "hash <file>",
		Short: "Compute the cache-key hash of an encoded image file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}
			if fallback {
				fmt.Println(imagehash.FallbackHash(payload))
				return nil
			}
			fmt.Println(imagehash.Hash(payload))
			return nil
		},
	}
	cmd.Flags().BoolVar(&fallback, "fallback", false, "use the weaker non-cryptographic hash path")
	return cmd
}
