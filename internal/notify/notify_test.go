package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func sampleAlert() Alert {
	uid := uint(4)
	return Alert{
		Action:      "MATCH_VOID",
		EntityType:  "fight_match",
		EntityID:    "12",
		ActorUserID: &uid,
		DeviceID:    "control-1",
		At:          time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
		Metadata:    map[string]any{"reason": "injured bird", "from": "ACTIVE"},
	}
}

func TestFormatAlert(t *testing.T) {
	got := FormatAlert(sampleAlert())
	assert.Equal(t, "[2026-03-01T09:30:00Z] MATCH_VOID fight_match #12\nby user 4 on control-1\nfrom: ACTIVE\nreason: injured bird", got)

	system := sampleAlert()
	system.ActorUserID = nil
	system.Metadata = nil
	assert.True(t, strings.Contains(FormatAlert(system), "by system on control-1"))
}

func TestTelegramNotifier_Notify(t *testing.T) {
	fs := &fakeSender{}
	n := &TelegramNotifier{bot: fs, chatID: -100123}

	require.NoError(t, n.Notify(context.Background(), sampleAlert()))
	require.Len(t, fs.sent, 1)
	assert.Equal(t, int64(-100123), fs.sent[0].ChatID)
	assert.Contains(t, fs.sent[0].Text, "MATCH_VOID")

	fs.err = errors.New("network down")
	assert.Error(t, n.Notify(context.Background(), sampleAlert()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, n.Notify(ctx, sampleAlert()), context.Canceled)
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	require.NoError(t, Nop{}.Notify(context.Background(), sampleAlert()))
	require.NoError(t, r.Notify(context.Background(), sampleAlert()))
	assert.Len(t, r.Alerts, 1)
}
