package cli

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/zapdesk/zapdesk/internal/cli.version=1.2.3"
	version = "0.4.1"
	logo    = "\n" +
		"  ______               _           _\n" +
		" |__  / __ _ _ __   __| | ___  ___| | __\n" +
		"   / / / _` | '_ \\ / _` |/ _ \\/ __| |/ /\n" +
		"  / /_| (_| | |_) | (_| |  __/\\__ \\   <\n" +
		" /____|\\__,_| .__/ \\__,_|\\___||___/_|\\_\\\n" +
		"            |_|\n"
)

var rootCmd = &cobra.Command{
	Use:   "zapdesk",
	Short: "ZapDesk - WhatsApp conversation arbitration and FAQ engine",
	Long:  color.CyanString(logo) + "\nArbitrates conversation ownership between automated agents and human operators,\nand short-circuits frequent questions with curated answers.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(gatewayCmd)
	rootCmd.AddCommand(faqCmd)
}
