package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath   string
	verbose      bool
	jsonLogs     bool
	providerType string
	modelName    string
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "librarian",
	Short: "AI-powered book recommendation service",
	Long: `Librarian answers conversational book questions with semantic search over
a local corpus of summaries and a tool-calling chat model.`,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to config file")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	RootCmd.PersistentFlags().BoolVar(&jsonLogs, "json", false, "JSON log output")
	RootCmd.PersistentFlags().StringVarP(&providerType, "provider", "p", "", "AI provider (openai, ollama, gemini)")
	RootCmd.PersistentFlags().StringVarP(&modelName, "model", "m", "", "Model name (default depends on provider)")
}
