package mail

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/project-management-api/internal/config"
	"github.com/yukikurage/project-management-api/internal/logging"
)

func TestResendSender_Send(t *testing.T) {
	var got resendRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewResendSender("re_key", "team@example.com", srv.Client())
	s.endpoint = srv.URL

	err := s.Send(context.Background(), Message{To: "dev@example.com", Subject: "Hi", HTML: "<p>hi</p>"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer re_key", auth)
	assert.Equal(t, []string{"dev@example.com"}, got.To)
	assert.Equal(t, "team@example.com", got.From)
	assert.Equal(t, "<p>hi</p>", got.HTML)
}

func TestResendSender_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	s := NewResendSender("re_key", "team@example.com", srv.Client())
	s.endpoint = srv.URL

	err := s.Send(context.Background(), Message{To: "dev@example.com"})
	assert.ErrorContains(t, err, "status 422")
}

func TestSMTPSender_Send(t *testing.T) {
	var addr string
	var body []byte
	s := NewSMTPSender("smtp.example.com", 587, "user", "pass", "team@example.com")
	s.send = func(a string, _ smtp.Auth, from string, to []string, msg []byte) error {
		addr = a
		body = msg
		return nil
	}

	require.NoError(t, s.Send(context.Background(), Message{To: "dev@example.com", Subject: "Reminder", HTML: "<b>due</b>"}))
	assert.Equal(t, "smtp.example.com:587", addr)
	assert.Contains(t, string(body), "Subject: Reminder\r\n")
	assert.Contains(t, string(body), "<b>due</b>")
}

type failingSender struct{ calls int }

func (f *failingSender) Send(context.Context, Message) error {
	f.calls++
	return errors.New("connection refused")
}

func TestBreakerSender_OpensAfterFailures(t *testing.T) {
	next := &failingSender{}
	s := NewBreakerSender(next, "test", logging.Discard())

	for i := 0; i < 4; i++ {
		assert.Error(t, s.Send(context.Background(), Message{}))
	}
	err := s.Send(context.Background(), Message{})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 4, next.calls)
}

func TestNewSender(t *testing.T) {
	log := logging.Discard()

	s, err := NewSender(config.MailConfig{Provider: "log"}, log)
	require.NoError(t, err)
	assert.IsType(t, &LogSender{}, s)

	s, err = NewSender(config.MailConfig{Provider: "resend", ResendAPIKey: "k"}, log)
	require.NoError(t, err)
	assert.IsType(t, &BreakerSender{}, s)

	_, err = NewSender(config.MailConfig{Provider: "pigeon"}, log)
	assert.Error(t, err)
}
