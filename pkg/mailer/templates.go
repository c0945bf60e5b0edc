package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

const brand = "Blood Bank Management System"

var kindColors = map[string]string{
	"info":    "#17a2b8",
	"success": "#28a745",
	"warning": "#ffc107",
	"error":   "#dc3545",
}

var layout = template.Must(template.New("layout").Parse(`<html>
<body>
	<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
		<div style="background-color: {{.Color}}; color: white; padding: 20px; text-align: center;">
			<h1>{{.Brand}}</h1>
		</div>
		<div style="padding: 20px; background-color: #f8f9fa;">
			<h2>{{.Heading}}</h2>
			{{if .Greeting}}<p>{{.Greeting}}</p>{{end}}
			{{if .Code}}
			<p>Your verification code is:</p>
			<div style="background-color: #e9ecef; padding: 15px; text-align: center; font-size: 24px; font-weight: bold; letter-spacing: 5px; margin: 20px 0;">{{.Code}}</div>
			<p>This code will expire in {{.TTLMinutes}} minutes.</p>
			<p>If you didn't request this code, please ignore this email.</p>
			{{else}}
			<div style="background-color: white; padding: 15px; border-radius: 5px; margin: 20px 0;">{{.Body}}</div>
			{{end}}
			<hr>
			<p style="color: #6c757d; font-size: 12px;">This is an automated message from the {{.Brand}}.</p>
		</div>
	</div>
</body>
</html>`))

type layoutData struct {
	Brand      string
	Color      string
	Heading    string
	Greeting   string
	Code       string
	TTLMinutes int
	Body       string
}

// OTPEmail returns subject and body for a one-time code. passwordReset selects the
// reset wording instead of email verification.
func OTPEmail(code string, passwordReset bool, ttl time.Duration) (string, string, error) {
	subject := brand + " - Email Verification"
	heading := "Your Verification Code"
	if passwordReset {
		subject = brand + " - Password Reset"
		heading = "Your Password Reset Code"
	}

	body, err := render(layoutData{
		Brand:      brand,
		Color:      kindColors["error"],
		Heading:    heading,
		Greeting:   "Hello!",
		Code:       code,
		TTLMinutes: int(ttl.Minutes()),
	})
	if err != nil {
		return "", "", err
	}
	return subject, body, nil
}

// NotificationEmail returns subject and body mirroring an in-app notification.
func NotificationEmail(title, message, kind string) (string, string, error) {
	color, ok := kindColors[kind]
	if !ok {
		color = kindColors["info"]
	}

	body, err := render(layoutData{
		Brand:   brand,
		Color:   color,
		Heading: title,
		Body:    message,
	})
	if err != nil {
		return "", "", err
	}
	return fmt.Sprintf("%s - %s", brand, title), body, nil
}

// WelcomeEmail greeting sent once the address is verified.
func WelcomeEmail(name string) (string, string, error) {
	body, err := render(layoutData{
		Brand:    brand,
		Color:    kindColors["success"],
		Heading:  "Welcome aboard",
		Greeting: fmt.Sprintf("Hello %s,", name),
		Body:     "Your email address has been verified. Log in and complete your profile to get started.",
	})
	if err != nil {
		return "", "", err
	}
	return brand + " - Welcome", body, nil
}

func render(data layoutData) (string, error) {
	var buf bytes.Buffer
	if err := layout.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render email: %w", err)
	}
	return buf.String(), nil
}
