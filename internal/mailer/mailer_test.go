package mailer

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogMailerSimulatesSend(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := NewLogMailer(zap.New(core).Sugar())

	res, err := m.Send(context.Background(), Message{
		To:      []string{"ops@example.com"},
		Subject: "Low stock",
		HTML:    "<p>Paracetamol is low</p>",
	})
	require.NoError(t, err)
	assert.True(t, res.Simulated)
	_, err = uuid.Parse(res.MessageID)
	assert.NoError(t, err)

	entries := logs.FilterMessage("simulated email send").All()
	require.Len(t, entries, 1)
	assert.Equal(t, res.MessageID, entries[0].ContextMap()["message_id"])
}

func TestMessageValidation(t *testing.T) {
	m := NewLogMailer(zap.NewNop().Sugar())
	ctx := context.Background()

	_, err := m.Send(ctx, Message{Subject: "s", HTML: "h"})
	assert.ErrorIs(t, err, ErrInvalidMessage)

	_, err = m.Send(ctx, Message{To: []string{"not-an-address"}, Subject: "s", HTML: "h"})
	assert.Error(t, err)

	_, err = m.Send(ctx, Message{To: []string{"a@example.com"}, Subject: "s\r\nBcc: x@example.com", HTML: "h"})
	assert.Error(t, err)
}

func TestSMTPMailerBuildsMessage(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", Port: 587, From: "crm@example.com"}, zap.NewNop().Sugar())

	var gotAddr string
	var gotBody string
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr = addr
		gotBody = string(msg)
		assert.Nil(t, a)
		assert.Equal(t, "crm@example.com", from)
		assert.Equal(t, []string{"a@example.com"}, to)
		return nil
	}

	res, err := m.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "Hi", HTML: "<b>x</b>"})
	require.NoError(t, err)
	assert.False(t, res.Simulated)
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.True(t, strings.HasPrefix(gotBody, "From: crm@example.com\r\n"))
	assert.Contains(t, gotBody, "Subject: Hi\r\n")
	assert.True(t, strings.HasSuffix(gotBody, "\r\n\r\n<b>x</b>"))
}

func TestSMTPMailerWrapsProviderError(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", Port: 25, From: "crm@example.com", Username: "u", Password: "p"}, zap.NewNop().Sugar())
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		return errors.New("421 try later")
	}

	_, err := m.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "Hi", HTML: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send email: 421 try later")
}
