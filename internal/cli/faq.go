package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/zapdesk/zapdesk/internal/config"
	"github.com/zapdesk/zapdesk/internal/faq"
	"github.com/zapdesk/zapdesk/internal/store"
)

var faqCmd = &cobra.Command{
	Use:   "faq",
	Short: "Manage curated FAQ entries",
}

var faqAgentID string
var faqKeywords string

func openFAQAdmin() (*faq.Admin, *store.Store, string) {
	config.LoadEnvFiles()
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Config error: %v\n", err)
		os.Exit(1)
	}
	s, err := store.NewStore(config.DatabasePath(cfg))
	if err != nil {
		fmt.Printf("Failed to open store: %v\n", err)
		os.Exit(1)
	}
	agentID := faqAgentID
	if agentID == "" {
		agentID = cfg.Channels.WhatsApp.AgentID
	}
	return faq.NewAdmin(s), s, agentID
}

var faqAddCmd = &cobra.Command{
	Use:   "add <question> <answer>",
	Short: "Add a FAQ entry (keywords auto-extracted unless --keywords given)",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		admin, s, agentID := openFAQAdmin()
		defer s.Close()

		var keywords []string
		if faqKeywords != "" {
			for _, k := range strings.Split(faqKeywords, ",") {
				if k = strings.TrimSpace(k); k != "" {
					keywords = append(keywords, k)
				}
			}
		}
		entry, err := admin.Create(agentID, args[0], args[1], keywords)
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("✅ FAQ #%d added (keywords: %s)\n", entry.ID, strings.Join(entry.Keywords, ", "))
	},
}

var faqListCmd = &cobra.Command{
	Use:   "list",
	Short: "List FAQ entries",
	Run: func(cmd *cobra.Command, args []string) {
		admin, s, agentID := openFAQAdmin()
		defer s.Close()

		entries, err := admin.List(agentID, true)
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			os.Exit(1)
		}
		if len(entries) == 0 {
			fmt.Println("No FAQ entries yet. Add one with: zapdesk faq add <question> <answer>")
			return
		}
		for _, e := range entries {
			state := color.GreenString("active")
			if !e.Active {
				state = color.RedString("inactive")
			}
			fmt.Printf("#%d [%s] uses=%d\n  Q: %s\n  A: %s\n  keywords: %s\n",
				e.ID, state, e.UsageCount, e.Question, e.Answer, strings.Join(e.Keywords, ", "))
		}
	},
}

var faqDeactivateCmd = &cobra.Command{
	Use:   "deactivate <id>",
	Short: "Remove a FAQ entry from matching (usage history is kept)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		admin, s, _ := openFAQAdmin()
		defer s.Close()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			fmt.Printf("❌ invalid id: %s\n", args[0])
			os.Exit(1)
		}
		if err := admin.Deactivate(id); err != nil {
			fmt.Printf("❌ %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("✅ FAQ #%d deactivated\n", id)
	},
}

var faqTopCmd = &cobra.Command{
	Use:   "top",
	Short: "Show the most used FAQ entries",
	Run: func(cmd *cobra.Command, args []string) {
		_, s, agentID := openFAQAdmin()
		defer s.Close()

		top, err := s.TopFAQs(agentID, 10)
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			os.Exit(1)
		}
		if len(top) == 0 {
			fmt.Println("No usage recorded yet.")
			return
		}
		for i, st := range top {
			fmt.Printf("%2d. [%d uses] #%d %s\n", i+1, st.UsageCount, st.FAQID, st.Question)
		}
	},
}

func init() {
	faqCmd.PersistentFlags().StringVar(&faqAgentID, "agent", "", "agent id (defaults to the configured WhatsApp agent)")
	faqAddCmd.Flags().StringVar(&faqKeywords, "keywords", "", "comma-separated keywords (otherwise extracted from the question)")
	faqCmd.AddCommand(faqAddCmd)
	faqCmd.AddCommand(faqListCmd)
	faqCmd.AddCommand(faqDeactivateCmd)
	faqCmd.AddCommand(faqTopCmd)
}
