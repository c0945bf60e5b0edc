package mailer

import (
	"strings"
	"testing"
	"time"

	"github.com/ikkim/bloodlink-backend/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOTPEmail(t *testing.T) {
	subject, body, err := OTPEmail("042917", false, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "Blood Bank Management System - Email Verification", subject)
	assert.Contains(t, body, "042917")
	assert.Contains(t, body, "expire in 10 minutes")

	subject, _, err = OTPEmail("000001", true, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "Blood Bank Management System - Password Reset", subject)
}

func TestNotificationEmail_EscapesMessage(t *testing.T) {
	subject, body, err := NotificationEmail("Appointment Confirmed", "<script>x</script>", "success")
	require.NoError(t, err)
	assert.Equal(t, "Blood Bank Management System - Appointment Confirmed", subject)
	assert.Contains(t, body, "#28a745")
	assert.False(t, strings.Contains(body, "<script>"))
}

func TestNotificationEmail_UnknownKindFallsBackToInfo(t *testing.T) {
	_, body, err := NotificationEmail("Hello", "msg", "mystery")
	require.NoError(t, err)
	assert.Contains(t, body, "#17a2b8")
}

func TestSMTPMailer_DevModeDoesNotDial(t *testing.T) {
	m := NewSMTPMailer(config.SMTPConfig{Host: "127.0.0.1", Port: 1})
	assert.True(t, m.DevMode())
	assert.NoError(t, m.Send("donor@example.com", "subject", "<p>body</p>"))
}

func TestSMTPMailer_BuildMessage(t *testing.T) {
	m := NewSMTPMailer(config.SMTPConfig{From: "noreply@example.com", FromName: "Blood Bank"})
	msg := string(m.buildMessage("donor@example.com", "Hi", "<p>x</p>"))

	assert.Contains(t, msg, "To: donor@example.com\r\n")
	assert.Contains(t, msg, "<noreply@example.com>")
	assert.Contains(t, msg, "Content-Type: text/html; charset=UTF-8")
	assert.True(t, strings.HasSuffix(msg, "<p>x</p>"))
}
