package integrations

import (
	"context"
	"errors"
	"strings"
	"time"
)

// WhatsAppMessage is template message sent through WhatsApp Cloud API
type WhatsAppMessage struct {
	To       string   `json:"to" binding:"required"`
	Template string   `json:"template" binding:"required"`
	Language string   `json:"language"`
	Params   []string `json:"params"`
}

// Validate check phone number and template
func (m WhatsAppMessage) Validate() error {
	digits := strings.TrimPrefix(strings.TrimSpace(m.To), "+")
	if len(digits) < 8 || len(digits) > 15 {
		return errors.New("recipient must be an international phone number")
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return errors.New("recipient must contain digits only")
		}
	}
	if strings.TrimSpace(m.Template) == "" {
		return errors.New("template is required")
	}
	return nil
}

// WhatsAppSender deliver WhatsApp template message
type WhatsAppSender interface {
	SendWhatsApp(ctx context.Context, msg WhatsAppMessage) error
}

// WhatsApp is client of WhatsApp Cloud API
type WhatsApp struct {
	apiURL  string
	token   string
	phoneID string
}

// NewWhatsApp create client, disabled when token or phoneID is empty
func NewWhatsApp(apiURL string, token string, phoneID string) *WhatsApp {
	return &WhatsApp{apiURL: apiURL, token: token, phoneID: phoneID}
}

// Enabled tell whether client has credentials
func (w *WhatsApp) Enabled() bool {
	return w != nil && w.apiURL != "" && w.token != "" && w.phoneID != ""
}

// SendWhatsApp implements WhatsAppSender
func (w *WhatsApp) SendWhatsApp(ctx context.Context, msg WhatsAppMessage) error {
	if !w.Enabled() {
		return ErrDisabled
	}
	if err := msg.Validate(); err != nil {
		return err
	}

	lang := msg.Language
	if lang == "" {
		lang = "en_US"
	}
	params := make([]map[string]string, 0, len(msg.Params))
	for _, p := range msg.Params {
		params = append(params, map[string]string{"type": "text", "text": p})
	}
	template := map[string]interface{}{
		"name":     msg.Template,
		"language": map[string]string{"code": lang},
	}
	if len(params) > 0 {
		template["components"] = []map[string]interface{}{
			{"type": "body", "parameters": params},
		}
	}

	resp, err := newClient(w.apiURL, 15*time.Second).R().
		SetContext(ctx).
		SetAuthToken(w.token).
		SetPathParam("phoneID", w.phoneID).
		SetBody(map[string]interface{}{
			"messaging_product": "whatsapp",
			"to":                strings.TrimPrefix(strings.TrimSpace(msg.To), "+"),
			"type":              "template",
			"template":          template,
		}).
		Post("/{phoneID}/messages")
	return checkResponse("whatsapp", resp, err)
}
