package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/zapdesk/zapdesk/internal/config"
	"github.com/zapdesk/zapdesk/internal/store"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("🏷️ ZapDesk Version")
		fmt.Printf("Version: %s\n", version)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("📊 ZapDesk Status")
		fmt.Printf("Version: %s\n", version)

		configPath, _ := config.ConfigPath()
		if _, err := os.Stat(configPath); err == nil {
			fmt.Println("Config:  ✓ Found (" + configPath + ")")
		} else {
			fmt.Println("Config:  ✗ Not found (defaults in effect)")
		}

		cfg, err := config.Load()
		if err != nil {
			fmt.Printf("Config error: %v\n", err)
			return
		}

		if cfg.Providers.OpenAI.APIKey != "" {
			fmt.Println("API Key: ✓ Found")
		} else {
			fmt.Println("API Key: ✗ Not found (generative fallback disabled)")
		}
		if cfg.Events.KafkaBrokers != "" {
			fmt.Println("Kafka:   ✓ Configured (" + cfg.Events.KafkaBrokers + ")")
		} else {
			fmt.Println("Kafka:   – Disabled")
		}
		if cfg.Notify.SlackToken != "" {
			fmt.Println("Slack:   ✓ Configured")
		} else {
			fmt.Println("Slack:   – Disabled")
		}

		dbPath := config.DatabasePath(cfg)
		if _, err := os.Stat(dbPath); err != nil {
			fmt.Println("Store:   ✗ Not found (" + dbPath + ")")
			return
		}
		s, err := store.NewStore(dbPath)
		if err != nil {
			fmt.Printf("Store:   ✗ Open error: %v\n", err)
			return
		}
		defer s.Close()

		fmt.Println("Store:   ✓ Found (" + dbPath + ")")
		if convs, err := s.ListConversations("", 1000, 0); err == nil {
			held := 0
			for _, c := range convs {
				if c.Ownership == store.OwnershipHuman {
					held++
				}
			}
			fmt.Printf("Conversations: %d tracked, %d human-held\n", len(convs), held)
		}
		if s.IsAutoReplyPaused() {
			fmt.Println("Auto-reply: ⏸ PAUSED")
		} else {
			fmt.Println("Auto-reply: ▶ Active")
		}
	},
}
