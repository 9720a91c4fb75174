package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/constantino-dev/vecdb/internal/embeddings"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List registered embedding providers",
	RunE: func(cmd *cobra.Command, args []string) error {
		names := embeddings.Names()
		if verbose {
			printJSON(names)
			return nil
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}
