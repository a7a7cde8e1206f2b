package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the vector index",
}

var indexInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show index collection info",
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp()
		if err != nil {
			fatal(err)
		}
		defer a.close()

		info := a.service.DatabaseInfo(context.Background())
		fmt.Printf("Collection: %s\n", info.CollectionName)
		fmt.Printf("Documents:  %d\n", info.DocumentCount)
		fmt.Printf("Location:   %s\n", info.PersistDirectory)
	},
}

var indexPopulateCmd = &cobra.Command{
	Use:   "populate",
	Short: "Embed and index the corpus (no-op if already populated)",
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp()
		if err != nil {
			fatal(err)
		}
		defer a.close()

		ctx := context.Background()
		if err := a.service.InitializeIndex(ctx); err != nil {
			fatal(err)
		}
		info := a.service.DatabaseInfo(ctx)
		fmt.Printf("Index holds %d documents\n", info.DocumentCount)
	},
}

var indexResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop the collection and rebuild it from the corpus",
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp()
		if err != nil {
			fatal(err)
		}
		defer a.close()

		ctx := context.Background()
		if err := a.service.ReinitializeIndex(ctx); err != nil {
			fatal(err)
		}
		info := a.service.DatabaseInfo(ctx)
		fmt.Printf("Index rebuilt with %d documents\n", info.DocumentCount)
	},
}

func init() {
	RootCmd.AddCommand(indexCmd)
	indexCmd.AddCommand(indexInfoCmd)
	indexCmd.AddCommand(indexPopulateCmd)
	indexCmd.AddCommand(indexResetCmd)
}
