package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var booksCmd = &cobra.Command{
	Use:   "books",
	Short: "Manage the book corpus",
}

var booksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all books in the corpus",
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp()
		if err != nil {
			fatal(err)
		}
		defer a.close()

		books := a.service.Books()
		if len(books) == 0 {
			fmt.Println("No books in the corpus yet.")
			return
		}
		for _, title := range books {
			fmt.Println(title)
		}
		fmt.Printf("\n%d books\n", len(books))
	},
}

var booksAddCmd = &cobra.Command{
	Use:   "add [title] [summary...]",
	Short: "Add a book to the corpus",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp()
		if err != nil {
			fatal(err)
		}
		defer a.close()

		title := args[0]
		summary := strings.Join(args[1:], " ")
		if err := a.service.AddBook(title, summary); err != nil {
			fatal(err)
		}
		fmt.Printf("Added %q. Run 'librarian index reset' to make it searchable.\n", title)
	},
}

var booksShowCmd = &cobra.Command{
	Use:   "show [title]",
	Short: "Show the stored summary for a book",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp()
		if err != nil {
			fatal(err)
		}
		defer a.close()

		summary, ok := a.service.Lookup(args[0])
		if !ok {
			fmt.Println(a.service.MissMessage(args[0]))
			return
		}
		fmt.Println(summary)
	},
}

func init() {
	RootCmd.AddCommand(booksCmd)
	booksCmd.AddCommand(booksListCmd)
	booksCmd.AddCommand(booksAddCmd)
	booksCmd.AddCommand(booksShowCmd)
}
