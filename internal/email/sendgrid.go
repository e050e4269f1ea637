// Package email sends transactional mail through the SendGrid v3 API.
package email

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

const defaultAPIURL = "https://api.sendgrid.com/v3/mail/send"

type Client struct {
	apiKey     string
	fromEmail  string
	baseURL    string
	apiURL     string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithAPIURL overrides the SendGrid endpoint. Used in tests.
func WithAPIURL(url string) Option {
	return func(cl *Client) {
		cl.apiURL = url
	}
}

func NewClient(apiKey, fromEmail, baseURL string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		fromEmail:  fromEmail,
		baseURL:    baseURL,
		apiURL:     defaultAPIURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the API key is set.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

type sgAddress struct {
	Email string `json:"email"`
}

type sgPersonalization struct {
	To []sgAddress `json:"to"`
}

type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sgMail struct {
	Personalizations []sgPersonalization `json:"personalizations"`
	From             sgAddress           `json:"from"`
	Subject          string              `json:"subject"`
	Content          []sgContent         `json:"content"`
}

// SendAuthCode sends a one-time sign-in or registration code.
func (c *Client) SendAuthCode(toEmail, code, purpose string) error {
	var subject string
	switch purpose {
	case "register":
		subject = "Welcome to Lumina"
	default:
		subject = "Sign in to Lumina"
	}

	textBody := fmt.Sprintf("Your verification code is %s.\n\nIt expires in 15 minutes.", code)
	htmlBody := fmt.Sprintf(
		`<p>Your verification code is:</p><p style="font-size:24px;letter-spacing:4px"><strong>%s</strong></p><p>It expires in 15 minutes.</p>`,
		code,
	)
	return c.send(toEmail, subject, textBody, htmlBody)
}

// SendCoupleInvite notifies a partner that they have been invited to link
// accounts. The token lets an unregistered recipient land on the invite
// directly after signing up.
func (c *Client) SendCoupleInvite(toEmail, inviterName, token string) error {
	subject := fmt.Sprintf("%s invited you to Lumina", inviterName)
	link := fmt.Sprintf("%s/invite?token=%s", c.baseURL, token)
	textBody := fmt.Sprintf(
		"%s wants to share their finances with you on Lumina.\n\nOpen the link below to accept or decline:\n\n%s",
		inviterName, link,
	)
	htmlBody := fmt.Sprintf(
		`<p>%s wants to share their finances with you on Lumina.</p><p><a href="%s">View invitation</a></p>`,
		inviterName, link,
	)
	return c.send(toEmail, subject, textBody, htmlBody)
}

func (c *Client) send(toEmail, subject, textBody, htmlBody string) error {
	if !c.Configured() {
		return fmt.Errorf("email client not configured: missing API key")
	}

	payload := sgMail{
		Personalizations: []sgPersonalization{{To: []sgAddress{{Email: toEmail}}}},
		From:             sgAddress{Email: c.fromEmail},
		Subject:          subject,
		Content: []sgContent{
			{Type: "text/plain", Value: textBody},
			{Type: "text/html", Value: htmlBody},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequest("POST", c.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid API error: status %d", resp.StatusCode)
	}
	return nil
}
