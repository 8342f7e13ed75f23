package channels

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/skip2/go-qrcode"
	"github.com/zapdesk/zapdesk/internal/bus"
	"github.com/zapdesk/zapdesk/internal/config"

	_ "modernc.org/sqlite"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"
)

// WhatsAppChannel is a native WhatsApp client for one business line. Every
// text event, including messages the operator sends from the linked phone,
// is published to the bus: the arbiter decides from the FromMe flag whether
// a message is a customer question or a human takeover signal.
type WhatsAppChannel struct {
	BaseChannel
	client    *whatsmeow.Client
	config    config.WhatsAppConfig
	dataDir   string
	container *sqlstore.Container
	sendFn    func(ctx context.Context, msg *bus.OutboundMessage) error
}

// NewWhatsAppChannel creates a new WhatsApp channel.
func NewWhatsAppChannel(cfg config.WhatsAppConfig, dataDir string, messageBus *bus.MessageBus) *WhatsAppChannel {
	return &WhatsAppChannel{
		BaseChannel: BaseChannel{Bus: messageBus},
		config:      cfg,
		dataDir:     dataDir,
	}
}

func (c *WhatsAppChannel) Name() string { return "whatsapp" }

func (c *WhatsAppChannel) Start(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}

	dbLog := waLog.Stdout("Database", "WARN", true)
	clientLog := waLog.Stdout("Client", "INFO", true)

	dbPath := filepath.Join(c.dataDir, "whatsapp.db")
	os.MkdirAll(filepath.Dir(dbPath), 0755)

	container, err := sqlstore.New(ctx, "sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", dbLog)
	if err != nil {
		return fmt.Errorf("failed to init whatsapp db: %w", err)
	}
	c.container = container

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return fmt.Errorf("failed to get device: %w", err)
	}

	c.client = whatsmeow.NewClient(deviceStore, clientLog)
	c.client.AddEventHandler(c.eventHandler)

	if c.client.Store.ID == nil {
		// No session, need to pair
		qrChan, _ := c.client.GetQRChannel(context.Background())
		if err := c.client.Connect(); err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}

		fmt.Println("WhatsApp: Scan this QR code to login:")
		for evt := range qrChan {
			if evt.Event == "code" {
				qrPath := filepath.Join(c.dataDir, "whatsapp-qr.png")
				if err := qrcode.WriteFile(evt.Code, qrcode.Medium, 512, qrPath); err == nil {
					fmt.Printf("\n🖼️  WhatsApp Login QR Code saved to: %s\n", qrPath)
					fmt.Println("Please open this file on your computer and scan it with your phone.")
				}
			} else {
				fmt.Println("WhatsApp: Login event:", evt.Event)
			}
		}
	} else {
		if err := c.client.Connect(); err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		fmt.Println("WhatsApp: Connected")
	}

	c.Bus.Subscribe(c.Name(), func(msg *bus.OutboundMessage) {
		go c.handleOutbound(msg)
	})

	return nil
}

func (c *WhatsAppChannel) Stop() error {
	if c.client != nil {
		c.client.Disconnect()
	}
	if c.container != nil {
		c.container.Close()
	}
	return nil
}

// Send delivers one message to a customer phone number.
func (c *WhatsAppChannel) Send(ctx context.Context, msg *bus.OutboundMessage) error {
	if c.client == nil {
		return fmt.Errorf("client not initialized")
	}

	jid, err := types.ParseJID(toJID(msg.PhoneNumber))
	if err != nil {
		return fmt.Errorf("invalid JID: %w", err)
	}

	waMsg := &waE2E.Message{
		Conversation: proto.String(msg.Content),
	}

	_, err = c.client.SendMessage(ctx, jid, waMsg)
	return err
}

func (c *WhatsAppChannel) handleOutbound(msg *bus.OutboundMessage) {
	sendCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := c.sendOutbound(sendCtx, msg); err != nil {
		fmt.Printf("Error sending whatsapp message: %v\n", err)
		return
	}
	fmt.Printf("📤 Outbound WhatsApp source=%s to=%s\n", msg.Source, msg.PhoneNumber)
}

func (c *WhatsAppChannel) sendOutbound(ctx context.Context, msg *bus.OutboundMessage) error {
	if c.sendFn != nil {
		return c.sendFn(ctx, msg)
	}
	return c.Send(ctx, msg)
}

func (c *WhatsAppChannel) eventHandler(evt interface{}) {
	switch v := evt.(type) {
	case *events.Message:
		content := ""
		if v.Message.GetConversation() != "" {
			content = v.Message.GetConversation()
		} else if v.Message.GetExtendedTextMessage().GetText() != "" {
			content = v.Message.GetExtendedTextMessage().GetText()
		}
		if content == "" {
			return
		}
		if shouldDropSystemNoise(content) {
			return
		}
		// Group chats are out of scope for arbitration.
		if v.Info.IsGroup {
			return
		}

		phone := v.Info.Chat.User
		fmt.Printf("📩 Message Event chat=%s (IsFromMe: %v)\n", phone, v.Info.IsFromMe)

		c.Bus.PublishInbound(&bus.InboundMessage{
			Channel:     c.Name(),
			AgentID:     c.config.AgentID,
			PhoneNumber: phone,
			EventID:     "wa:" + v.Info.ID,
			Content:     content,
			FromMe:      v.Info.IsFromMe,
			Timestamp:   v.Info.Timestamp,
		})
	}
}

// toJID maps a bare phone number onto a user JID. Full JIDs pass through.
func toJID(phone string) string {
	if strings.Contains(phone, "@") {
		return phone
	}
	return phone + "@" + types.DefaultUserServer
}

func shouldDropSystemNoise(content string) bool {
	if content == "" {
		return false
	}
	// Raw protobuf-like payloads leaking through as text
	if strings.Contains(content, "messageContextInfo") &&
		strings.Contains(content, "{") &&
		strings.Contains(content, ":") {
		return true
	}
	return strings.Contains(content, "senderKeyDistributionMessage")
}
