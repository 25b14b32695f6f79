package mail

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewSendGridMailerValidates(t *testing.T) {
	_, err := NewSendGridMailer("", "Campus", "a@b.c", "")
	assert.Error(t, err)
	_, err = NewSendGridMailer("key", "Campus", "", "")
	assert.Error(t, err)
}

func TestSendGridMailerBuild(t *testing.T) {
	m, err := NewSendGridMailer("key", "Campus", "no-reply@campus.test", "")
	require.NoError(t, err)

	v3 := m.build(Message{ToEmail: "s@campus.test", ToName: "Student", Subject: "Shortlisted", HTML: "<b>hi</b>", Category: "application_status"})
	require.Len(t, v3.Personalizations, 1)
	assert.Equal(t, "[Campus] Shortlisted", v3.Personalizations[0].Subject)
	assert.Equal(t, "s@campus.test", v3.Personalizations[0].To[0].Address)
	assert.Equal(t, "Campus", v3.From.Name)
	assert.Len(t, v3.Content, 2)
	assert.Equal(t, []string{"application_status"}, v3.Categories)
}

func TestLogMailer(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	require.NoError(t, NewLogMailer(zap.New(core)).Send(context.Background(), Message{ToEmail: "x@y.z", Subject: "Hello"}))
	assert.Equal(t, 1, logs.FilterMessage("email suppressed").Len())
}

func TestClassifyStatus(t *testing.T) {
	assert.NoError(t, classifyStatus(202, ""))

	err := classifyStatus(400, "bad address")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRejected))

	for _, status := range []int{429, 500, 503} {
		err := classifyStatus(status, "")
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrRejected), "status %d should be retryable", status)
	}
}

func TestSendGridMailerRejectsMissingRecipient(t *testing.T) {
	m, err := NewSendGridMailer("key", "Campus", "no-reply@campus.test", "")
	require.NoError(t, err)

	err = m.Send(context.Background(), Message{Subject: "hi"})
	assert.True(t, errors.Is(err, ErrRejected))
}
