package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"cartflow/internal/fault"
)

const defaultMetaBaseURL = "https://graph.facebook.com/v19.0"

// MetaSender delivers messages through the WhatsApp Cloud API.
// It needs the tenant's business phone number ID on top of the token.
type MetaSender struct {
	// BaseURL of the Graph API. Overridable for tests.
	BaseURL string
	client  *http.Client
}

// NewMetaSender creates the adapter with the default endpoint.
func NewMetaSender(client *http.Client) *MetaSender {
	return &MetaSender{
		BaseURL: defaultMetaBaseURL,
		client:  client,
	}
}

type metaRequest struct {
	MessagingProduct string        `json:"messaging_product"`
	To               string        `json:"to"`
	Type             string        `json:"type"`
	Text             *metaText     `json:"text,omitempty"`
	Template         *metaTemplate `json:"template,omitempty"`
}

type metaText struct {
	Body string `json:"body"`
}

type metaTemplate struct {
	Name     string       `json:"name"`
	Language metaLanguage `json:"language"`
}

type metaLanguage struct {
	Code string `json:"code"`
}

type metaResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

func (s *MetaSender) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	if strings.TrimSpace(req.Token) == "" {
		return SendResult{}, fault.New(fault.InvalidCredentials, "meta: missing access token")
	}
	if strings.TrimSpace(req.MetaPhoneID) == "" {
		return SendResult{}, fault.New(fault.InvalidCredentials, "meta: missing business phone number id")
	}

	to, err := NormalizeDestination(req.Destination)
	if err != nil {
		return SendResult{}, err
	}

	// Tenants with an approved template send that; the Cloud API only
	// lets free-form text reach customers inside an open session window.
	payload := metaRequest{
		MessagingProduct: "whatsapp",
		To:               to,
	}
	if req.MetaTemplateName != "" {
		payload.Type = "template"
		payload.Template = &metaTemplate{
			Name:     req.MetaTemplateName,
			Language: metaLanguage{Code: "es"},
		}
	} else {
		payload.Type = "text"
		payload.Text = &metaText{Body: req.Message}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return SendResult{}, fmt.Errorf("meta: failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", strings.TrimSuffix(s.BaseURL, "/"), req.MetaPhoneID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return SendResult{}, fmt.Errorf("meta: failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.Token)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return SendResult{}, fault.Wrap(fault.Transient, err, "meta: request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return SendResult{}, classifyStatus("meta", resp.StatusCode)
	}

	var out metaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return SendResult{}, fault.Wrap(fault.Transient, err, "meta: failed to parse response")
	}
	if len(out.Messages) == 0 {
		return SendResult{}, fault.New(fault.Transient, "meta: response carried no message id")
	}

	return SendResult{MessageID: out.Messages[0].ID}, nil
}
