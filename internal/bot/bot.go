package bot

import (
	"context"
	"fmt"
	"log"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/store/sqlstore"
	waLog "go.mau.fi/whatsmeow/util/log"

	"wa-groupguard/internal/config"
	"wa-groupguard/internal/crash"
)

// BotService represents the WhatsApp bot service
type BotService struct {
	Client    *whatsmeow.Client
	container *sqlstore.Container
}

// Initialize opens the session store and creates the whatsmeow client.
// The session database is separate from the moderation database.
func Initialize(ctx context.Context, cfg *config.Config) (*BotService, error) {
	container, err := sqlstore.New(ctx, "sqlite3", cfg.Bot.SessionDB, waLog.Stdout("Session", cfg.Logger.Level, true))
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load device: %w", err)
	}

	client := whatsmeow.NewClient(device, waLog.Stdout("Client", cfg.Logger.Level, true))

	return &BotService{Client: client, container: container}, nil
}

// Start connects the client, walking through pairing when no session
// exists yet.
func (b *BotService) Start(ctx context.Context, cfg *config.Config) error {
	if b.Client.Store.ID != nil {
		log.Printf("Logged in as %s", b.Client.Store.ID.User)
		return b.Client.Connect()
	}

	// No stored session: pair via phone code or QR
	if cfg.Bot.PairPhone != "" {
		if err := b.Client.Connect(); err != nil {
			return fmt.Errorf("failed to connect for pairing: %w", err)
		}
		code, err := b.Client.PairPhone(ctx, cfg.Bot.PairPhone, true, whatsmeow.PairClientChrome, "Chrome (Linux)")
		if err != nil {
			return fmt.Errorf("failed to request pairing code: %w", err)
		}
		log.Printf("Pairing code: %s", code)
		return nil
	}

	qrChan, _ := b.Client.GetQRChannel(ctx)
	if err := b.Client.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	crash.SafeGoroutine("qr-login", func() {
		for evt := range qrChan {
			if evt.Event == "code" {
				log.Printf("Scan QR code to log in:\n%s", evt.Code)
			} else {
				log.Printf("Login event: %s", evt.Event)
			}
		}
	})
	return nil
}

// Stop disconnects the client.
func (b *BotService) Stop() {
	b.Client.Disconnect()
}
