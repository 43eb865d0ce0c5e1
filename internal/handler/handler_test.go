package handler

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"wa-groupguard/internal/config"
)

func newTestHandler() *Handler {
	cfg := &config.Config{}
	cfg.Bot.Prefixes = []string{"!", "#", "."}
	cfg.Bot.AllowedLinks = []string{"youtube.com", "youtu.be"}
	return &Handler{cfg: cfg}
}

func TestParseCommand(t *testing.T) {
	h := newTestHandler()

	tests := []struct {
		name     string
		text     string
		wantCmd  string
		wantArgs []string
		wantOK   bool
	}{
		{"bang prefix", "!warn @user spamming", "warn", []string{"@user", "spamming"}, true},
		{"dot prefix", ".status", "status", []string{}, true},
		{"uppercase command", "!WARN @user", "warn", []string{"@user"}, true},
		{"no prefix", "warn @user", "", nil, false},
		{"prefix only", "!", "", nil, false},
		{"empty", "", "", nil, false},
		{"prefix with spaces", "!   ", "", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args, ok := h.parseCommand(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantCmd, cmd)
			if tt.wantOK {
				assert.Equal(t, tt.wantArgs, args)
			}
		})
	}
}

func TestNumberToJID(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"4915551234567", "4915551234567@s.whatsapp.net", true},
		{"+4915551234567", "4915551234567@s.whatsapp.net", true},
		{"@4915551234567", "4915551234567@s.whatsapp.net", true},
		{"not-a-number", "", false},
		{"123", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := numberToJID(tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
		if tt.wantOK {
			assert.Equal(t, tt.want, got, tt.in)
		}
	}
}

func TestReasonFromArgs(t *testing.T) {
	assert.Equal(t, "spamming links", reasonFromArgs([]string{"@4915551234567", "spamming", "links"}))
	assert.Equal(t, "flooding", reasonFromArgs([]string{"4915551234567", "flooding"}))
	assert.Equal(t, "no reason given", reasonFromArgs([]string{"@4915551234567"}))
	assert.Equal(t, "no reason given", reasonFromArgs(nil))
}

func TestContainsForbiddenLink(t *testing.T) {
	h := newTestHandler()

	assert.True(t, h.containsForbiddenLink("join here https://chat.whatsapp.com/AbCdEf"))
	assert.True(t, h.containsForbiddenLink("visit www.scam-site.example now"))
	assert.True(t, h.containsForbiddenLink("http://example.com and https://youtube.com/watch"))
	assert.False(t, h.containsForbiddenLink("check https://youtube.com/watch?v=x"))
	assert.False(t, h.containsForbiddenLink("see https://youtu.be/x"))
	assert.False(t, h.containsForbiddenLink("no links at all"))
}

func TestMention(t *testing.T) {
	assert.Equal(t, "@4915551234567", mention("4915551234567@s.whatsapp.net"))
}

func TestSelfJIDConcurrentAccess(t *testing.T) {
	h := newTestHandler()
	assert.Equal(t, "", h.selfJID())

	// reconnects rewrite the JID while handler goroutines read it
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.botJID.Store("4915550000000@s.whatsapp.net")
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.selfJID()
		}()
	}
	wg.Wait()

	assert.Equal(t, "4915550000000@s.whatsapp.net", h.selfJID())
}
