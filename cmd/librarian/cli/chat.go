package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/felixgeelhaar/librarian/internal/ui/tui"
	"github.com/spf13/cobra"
)

var interactive bool

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Talk to the librarian",
	Run: func(cmd *cobra.Command, args []string) {
		if !interactive && len(args) == 0 {
			fatal(fmt.Errorf("provide a message or use --interactive"))
		}

		a, err := newApp()
		if err != nil {
			fatal(err)
		}
		defer a.close()

		ctx := context.Background()
		if err := a.service.InitializeIndex(ctx); err != nil {
			a.obs.Log().Warn().Err(err).Msg("could not initialize index")
		}

		if interactive {
			program := tea.NewProgram(tui.New(a.service), tea.WithAltScreen())
			if _, err := program.Run(); err != nil {
				fmt.Printf("Alas, there's been an error: %v", err)
				os.Exit(1)
			}
			return
		}

		res := a.service.Chat(ctx, strings.Join(args, " "), nil)
		fmt.Println(res.Message)
		if verbose {
			for _, call := range res.FunctionCalls {
				fmt.Printf("\n[tool %s(%v)]\n", call.Function, call.Arguments)
			}
			for _, hit := range res.SearchResults {
				fmt.Printf("[hit %s %.2f]\n", hit.Title, hit.Similarity)
			}
		}
		if !res.Success {
			os.Exit(1)
		}
	},
}

func init() {
	RootCmd.AddCommand(chatCmd)
	chatCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Start interactive chat TUI")
}
