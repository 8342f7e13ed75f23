package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/zapdesk/zapdesk/internal/arbiter"
	"github.com/zapdesk/zapdesk/internal/bus"
	"github.com/zapdesk/zapdesk/internal/channels"
	"github.com/zapdesk/zapdesk/internal/config"
	"github.com/zapdesk/zapdesk/internal/events"
	"github.com/zapdesk/zapdesk/internal/faq"
	"github.com/zapdesk/zapdesk/internal/notify"
	"github.com/zapdesk/zapdesk/internal/ownership"
	"github.com/zapdesk/zapdesk/internal/provider"
	"github.com/zapdesk/zapdesk/internal/store"
)

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Start the arbitration gateway (WhatsApp, HTTP API)",
	Run:   runGateway,
}

func runGateway(cmd *cobra.Command, args []string) {
	printHeader("🌐 ZapDesk Gateway")
	fmt.Println("Starting ZapDesk Gateway...")

	// 1. Load Config
	config.LoadEnvFiles()
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Config error: %v\n", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(cfg.Paths.DataDir, 0755); err != nil {
		fmt.Printf("Data dir error: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup Store
	st, err := store.NewStore(config.DatabasePath(cfg))
	if err != nil {
		fmt.Printf("Failed to init store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	// 3. Setup Bus
	msgBus := bus.NewMessageBus()

	// 4. Setup Event Stream + Alerting (both optional)
	var pub *events.Publisher
	if cfg.Events.KafkaBrokers != "" {
		pub = events.NewPublisher(events.Config{
			Brokers:        strings.Split(cfg.Events.KafkaBrokers, ","),
			UsageTopic:     cfg.Events.UsageTopic,
			OwnershipTopic: cfg.Events.OwnershipTopic,
		})
		defer pub.Close()
		fmt.Println("📡 Kafka event stream enabled:", cfg.Events.KafkaBrokers)
	}
	notifier := notify.NewNotifier(notify.Config{
		Token:   cfg.Notify.SlackToken,
		Channel: cfg.Notify.SlackChannel,
	})
	if notifier != nil {
		fmt.Println("🔔 Slack operator alerts enabled:", cfg.Notify.SlackChannel)
	}

	// 5. Setup Arbitration Core
	registry := ownership.NewRegistry(st)
	matcher := faq.NewMatcher(st, cfg.Arbiter.MaxCandidates)
	ledger := faq.NewLedger(st, pub)
	admin := faq.NewAdmin(st)

	var responder provider.Responder
	if cfg.Providers.OpenAI.APIKey != "" {
		responder, err = provider.NewOpenAIResponder(provider.OpenAIConfig{
			APIKey:       cfg.Providers.OpenAI.APIKey,
			APIBase:      cfg.Providers.OpenAI.APIBase,
			Model:        cfg.Providers.OpenAI.Model,
			SystemPrompt: cfg.Providers.OpenAI.SystemPrompt,
		})
		if err != nil {
			fmt.Printf("Provider error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("🤖 Generative fallback enabled:", cfg.Providers.OpenAI.Model)
	} else {
		fmt.Println("ℹ️  No OpenAI key: unmatched questions go unanswered")
	}

	arb := arbiter.New(msgBus, st, registry, matcher, ledger, responder, pub, notifier)
	sweeper := ownership.NewSweeper(ownership.SweeperConfig{
		Interval:  cfg.Arbiter.SweepInterval,
		Threshold: cfg.Arbiter.InactivityThreshold,
	}, registry, pub)

	// 6. Setup Channels
	wa := channels.NewWhatsAppChannel(cfg.Channels.WhatsApp, cfg.Paths.DataDir, msgBus)
	if cfg.Channels.WhatsApp.Enabled {
		// Manual sends go through the channel synchronously so delivery
		// failures reach the API caller.
		arb.RegisterSender(wa.Name(), wa)
	}

	// 7. Start Everything
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go arb.Run(ctx)
	go sweeper.Run(ctx)
	go msgBus.DispatchOutbound(ctx)

	if err := wa.Start(ctx); err != nil {
		fmt.Printf("Failed to start WhatsApp: %v\n", err)
	}

	defaultAgent := cfg.Channels.WhatsApp.AgentID

	requireAuth := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if cfg.Gateway.AuthToken != "" {
				token := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
				if token != cfg.Gateway.AuthToken {
					http.Error(w, "unauthorized", http.StatusUnauthorized)
					return
				}
			}
			next(w, r)
		}
	}
	writeJSON := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(v)
	}
	agentParam := func(r *http.Request) string {
		if a := r.URL.Query().Get("agent_id"); a != "" {
			return a
		}
		return defaultAgent
	}

	gatewayStartTime := time.Now()
	mux := http.NewServeMux()

	// API: Status (unauthenticated health check)
	mux.HandleFunc("/api/v1/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"version":           version,
			"agent_id":          defaultAgent,
			"uptime_seconds":    int(time.Since(gatewayStartTime).Seconds()),
			"whatsapp_enabled":  cfg.Channels.WhatsApp.Enabled,
			"events_enabled":    pub != nil,
			"auto_reply_paused": st.IsAutoReplyPaused(),
			"inbound_queue":     msgBus.InboundSize(),
			"outbound_queue":    msgBus.OutboundSize(),
		})
	})

	// Webhook: inbound bridge for external channel adapters (POST)
	mux.HandleFunc("/webhook/inbound", requireAuth(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var body struct {
			Channel     string `json:"channel"`
			AgentID     string `json:"agent_id"`
			PhoneNumber string `json:"phone_number"`
			SessionID   string `json:"session_id"`
			EventID     string `json:"event_id"`
			Content     string `json:"content"`
			FromMe      bool   `json:"from_me"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		if body.PhoneNumber == "" || body.Content == "" {
			http.Error(w, "phone_number and content required", http.StatusBadRequest)
			return
		}
		if body.AgentID == "" {
			body.AgentID = defaultAgent
		}
		if body.Channel == "" {
			body.Channel = "whatsapp"
		}
		msgBus.PublishInbound(&bus.InboundMessage{
			Channel:     body.Channel,
			AgentID:     body.AgentID,
			PhoneNumber: body.PhoneNumber,
			SessionID:   body.SessionID,
			EventID:     body.EventID,
			Content:     body.Content,
			FromMe:      body.FromMe,
			Timestamp:   time.Now(),
		})
		writeJSON(w, map[string]any{"ok": true})
	}))

	// API: Manual send (POST), takes the conversation over
	mux.HandleFunc("/api/v1/messages/send", requireAuth(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var body struct {
			Channel     string `json:"channel"`
			AgentID     string `json:"agent_id"`
			PhoneNumber string `json:"phone_number"`
			Content     string `json:"content"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		if body.PhoneNumber == "" || body.Content == "" {
			http.Error(w, "phone_number and content required", http.StatusBadRequest)
			return
		}
		if body.AgentID == "" {
			body.AgentID = defaultAgent
		}
		if body.Channel == "" {
			body.Channel = "whatsapp"
		}
		if err := arb.SendManual(r.Context(), body.Channel, body.AgentID, body.PhoneNumber, body.Content); err != nil {
			status := http.StatusServiceUnavailable
			if errors.Is(err, arbiter.ErrSendFailed) {
				status = http.StatusBadGateway
			}
			http.Error(w, err.Error(), status)
			return
		}
		writeJSON(w, map[string]any{"ok": true, "ownership": store.OwnershipHuman})
	}))

	// API: Conversations (GET)
	mux.HandleFunc("/api/v1/conversations", requireAuth(func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		convs, err := st.ListConversations(agentParam(r), limit, offset)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if convs == nil {
			convs = []store.Conversation{}
		}
		writeJSON(w, convs)
	}))

	// API: Conversation state (GET)
	mux.HandleFunc("/api/v1/conversations/state", requireAuth(func(w http.ResponseWriter, r *http.Request) {
		phone := r.URL.Query().Get("phone_number")
		if phone == "" {
			http.Error(w, "phone_number required", http.StatusBadRequest)
			return
		}
		c, err := registry.Get(agentParam(r), phone)
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		if c == nil {
			writeJSON(w, map[string]any{"ownership": store.OwnershipAutomated})
			return
		}
		writeJSON(w, c)
	}))

	// API: Resume AI (POST), immediate release without waiting for a sweep
	mux.HandleFunc("/api/v1/conversations/resume", requireAuth(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var body struct {
			AgentID     string `json:"agent_id"`
			PhoneNumber string `json:"phone_number"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		if body.PhoneNumber == "" {
			http.Error(w, "phone_number required", http.StatusBadRequest)
			return
		}
		if body.AgentID == "" {
			body.AgentID = defaultAgent
		}
		if err := arb.Resume(r.Context(), body.AgentID, body.PhoneNumber); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, map[string]any{"ok": true, "ownership": store.OwnershipAutomated})
	}))

	// API: FAQs (GET list / POST create)
	mux.HandleFunc("/api/v1/faqs", requireAuth(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			includeInactive := r.URL.Query().Get("all") == "true"
			list, err := admin.List(agentParam(r), includeInactive)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			if list == nil {
				list = []store.FAQEntry{}
			}
			writeJSON(w, list)
		case http.MethodPost:
			var body struct {
				AgentID  string   `json:"agent_id"`
				Question string   `json:"question"`
				Answer   string   `json:"answer"`
				Keywords []string `json:"keywords"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				http.Error(w, "invalid body", http.StatusBadRequest)
				return
			}
			if body.AgentID == "" {
				body.AgentID = defaultAgent
			}
			entry, err := admin.Create(body.AgentID, body.Question, body.Answer, body.Keywords)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			writeJSON(w, entry)
		case http.MethodPut:
			var body struct {
				ID       int64    `json:"id"`
				Question string   `json:"question"`
				Answer   string   `json:"answer"`
				Keywords []string `json:"keywords"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				http.Error(w, "invalid body", http.StatusBadRequest)
				return
			}
			if err := admin.Update(body.ID, body.Question, body.Answer, body.Keywords); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			entry, err := admin.Get(body.ID)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			writeJSON(w, entry)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}))

	// API: FAQ deactivate/activate (POST)
	mux.HandleFunc("/api/v1/faqs/deactivate", requireAuth(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var body struct {
			ID     int64 `json:"id"`
			Active bool  `json:"active"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		var opErr error
		if body.Active {
			opErr = admin.Activate(body.ID)
		} else {
			opErr = admin.Deactivate(body.ID)
		}
		if opErr != nil {
			http.Error(w, opErr.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, map[string]any{"ok": true})
	}))

	// API: FAQ usage analytics (GET)
	mux.HandleFunc("/api/v1/faqs/top", requireAuth(func(w http.ResponseWriter, r *http.Request) {
		n, _ := strconv.Atoi(r.URL.Query().Get("n"))
		top, err := ledger.TopFAQs(agentParam(r), n)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if top == nil {
			top = []store.FAQUsageStat{}
		}
		writeJSON(w, top)
	}))

	mux.HandleFunc("/api/v1/faqs/usage", requireAuth(func(w http.ResponseWriter, r *http.Request) {
		days, _ := strconv.Atoi(r.URL.Query().Get("days"))
		buckets, err := ledger.UsageByDay(agentParam(r), days)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if buckets == nil {
			buckets = []store.UsageBucket{}
		}
		writeJSON(w, buckets)
	}))

	// API: Message log (GET)
	mux.HandleFunc("/api/v1/messages", requireAuth(func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		log, err := st.ListMessageLog(agentParam(r), r.URL.Query().Get("phone_number"), limit, offset)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if log == nil {
			log = []store.MessageLogEntry{}
		}
		writeJSON(w, log)
	}))

	// API: Pause / unpause auto-replies (POST)
	mux.HandleFunc("/api/v1/pause", requireAuth(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var body struct {
			Paused bool `json:"paused"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		if err := st.SetSetting("auto_reply_paused", strconv.FormatBool(body.Paused)); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]any{"ok": true, "paused": body.Paused})
	}))

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Gateway.Host, cfg.Gateway.Port)
		fmt.Printf("📡 API Server listening on http://%s\n", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			fmt.Printf("API Server Error: %v\n", err)
		}
	}()

	fmt.Println("ZapDesk Gateway running. Press Ctrl+C to stop.")
	<-sigChan

	fmt.Println("\nShutting down...")
	cancel()
	wa.Stop()
	fmt.Println("Goodbye!")
}
