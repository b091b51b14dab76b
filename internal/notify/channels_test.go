package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/JakeFAU/stockwatch/internal/monitor"
)

func TestDiscordPostsContent(t *testing.T) {
	var (
		mu   sync.Mutex
		body map[string]string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := NewDiscord(srv.URL, srv.Client())
	require.True(t, d.Configured())
	require.NoError(t, d.Send(context.Background(), monitor.Event{Kind: monitor.EventAvailable, Product: deck, Price: "1 999 zł"}))

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, strings.HasPrefix(body["content"], "@everyone ✅ **Steam Deck**"))
}

func TestDiscordRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, "rate limited")
	}))
	defer srv.Close()

	err := NewDiscord(srv.URL, nil).Send(context.Background(), monitor.Event{Kind: monitor.EventAvailable, Product: deck})
	assert.ErrorContains(t, err, "429")
	assert.ErrorContains(t, err, "rate limited")

	unset := NewDiscord("", nil)
	assert.False(t, unset.Configured())
	assert.ErrorIs(t, unset.Send(context.Background(), monitor.Event{}), ErrNotConfigured)
}

func TestTelegramSendsMessage(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
		form  = map[string]any{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&form)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"},"text":"ok"}}`)
	}))
	defer srv.Close()

	tg, err := NewTelegram(TelegramConfig{Token: "123:abc", ChatID: "42", APIURL: srv.URL})
	require.NoError(t, err)
	require.True(t, tg.Configured())
	require.NoError(t, tg.Send(context.Background(), monitor.Event{Kind: monitor.EventAvailable, Product: deck, Price: "1 999 zł"}))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, paths, 1)
	assert.Equal(t, "/bot123:abc/sendMessage", paths[0])
	assert.Equal(t, "Steam Deck for 1 999 zł. Link: https://shop.example/deck", form["text"])
	assert.Equal(t, "Markdown", form["parse_mode"])
}

func TestTelegramConfiguration(t *testing.T) {
	unset, err := NewTelegram(TelegramConfig{Token: "x"})
	require.NoError(t, err)
	assert.False(t, unset.Configured())
	assert.ErrorIs(t, unset.Send(context.Background(), monitor.Event{}), ErrNotConfigured)

	_, err = NewTelegram(TelegramConfig{Token: "x", ChatID: "not-a-number"})
	assert.Error(t, err)
}

type fakeTwilio struct {
	params *twilioApi.CreateMessageParams
	err    error
}

func (f *fakeTwilio) CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	f.params = params
	return &twilioApi.ApiV2010Message{}, f.err
}

func TestSMSSendsPlainText(t *testing.T) {
	api := &fakeTwilio{}
	s := &SMS{cfg: SMSConfig{From: "+100", To: "+200"}, api: api}

	require.NoError(t, s.Send(context.Background(), monitor.Event{Kind: monitor.EventAvailable, Product: deck, Price: "1 999 zł"}))
	require.NotNil(t, api.params)
	assert.Equal(t, "+200", *api.params.To)
	assert.Equal(t, "+100", *api.params.From)
	assert.Equal(t, "Steam Deck for 1 999 zł. Link: https://shop.example/deck", *api.params.Body)

	api.err = errors.New("unverified number")
	assert.ErrorContains(t, s.Send(context.Background(), monitor.Event{Kind: monitor.EventAvailable, Product: deck}), "unverified number")
}

func TestSMSConfiguration(t *testing.T) {
	assert.False(t, NewSMS(SMSConfig{AccountSID: "AC1"}).Configured())
	assert.True(t, NewSMS(SMSConfig{AccountSID: "AC1", AuthToken: "t", From: "+1", To: "+2"}).Configured())
	assert.ErrorIs(t, NewSMS(SMSConfig{}).Send(context.Background(), monitor.Event{}), ErrNotConfigured)
}
