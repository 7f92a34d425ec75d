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

const defaultZokoBaseURL = "https://chat.zoko.io/v2"

// ZokoSender delivers messages through the Zoko WhatsApp API.
type ZokoSender struct {
	// BaseURL of the Zoko API. Overridable for tests.
	BaseURL string
	client  *http.Client
}

// NewZokoSender creates the adapter with the default endpoint.
func NewZokoSender(client *http.Client) *ZokoSender {
	return &ZokoSender{
		BaseURL: defaultZokoBaseURL,
		client:  client,
	}
}

type zokoRequest struct {
	Channel   string `json:"channel"`
	Recipient string `json:"recipient"`
	Type      string `json:"type"`
	Message   string `json:"message"`
}

type zokoResponse struct {
	MessageID string `json:"messageId"`
}

func (s *ZokoSender) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	if strings.TrimSpace(req.Token) == "" {
		return SendResult{}, fault.New(fault.InvalidCredentials, "zoko: missing api key")
	}

	recipient, err := NormalizeDestination(req.Destination)
	if err != nil {
		return SendResult{}, err
	}

	body, err := json.Marshal(zokoRequest{
		Channel:   "whatsapp",
		Recipient: recipient,
		Type:      "text",
		Message:   req.Message,
	})
	if err != nil {
		return SendResult{}, fmt.Errorf("zoko: failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/message", strings.TrimSuffix(s.BaseURL, "/"))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return SendResult{}, fmt.Errorf("zoko: failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("apikey", req.Token)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return SendResult{}, fault.Wrap(fault.Transient, err, "zoko: request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return SendResult{}, classifyStatus("zoko", resp.StatusCode)
	}

	var out zokoResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return SendResult{}, fault.Wrap(fault.Transient, err, "zoko: failed to parse response")
	}

	return SendResult{MessageID: out.MessageID}, nil
}
