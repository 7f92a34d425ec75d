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

const defaultEvolutionBaseURL = "https://api.evolution-api.com"

// EvolutionSender delivers messages through an Evolution API instance.
type EvolutionSender struct {
	// BaseURL of the Evolution instance. Overridable for tests.
	BaseURL string
	client  *http.Client
}

// NewEvolutionSender creates the adapter with the default endpoint.
func NewEvolutionSender(client *http.Client) *EvolutionSender {
	return &EvolutionSender{
		BaseURL: defaultEvolutionBaseURL,
		client:  client,
	}
}

type evolutionRequest struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

type evolutionResponse struct {
	Key struct {
		ID string `json:"id"`
	} `json:"key"`
}

func (s *EvolutionSender) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	if strings.TrimSpace(req.Token) == "" {
		return SendResult{}, fault.New(fault.InvalidCredentials, "evolution: missing api token")
	}

	number, err := NormalizeDestination(req.Destination)
	if err != nil {
		return SendResult{}, err
	}

	body, err := json.Marshal(evolutionRequest{Number: number, Text: req.Message})
	if err != nil {
		return SendResult{}, fmt.Errorf("evolution: failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/message/sendText", strings.TrimSuffix(s.BaseURL, "/"))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return SendResult{}, fmt.Errorf("evolution: failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("apikey", req.Token)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return SendResult{}, fault.Wrap(fault.Transient, err, "evolution: request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return SendResult{}, classifyStatus("evolution", resp.StatusCode)
	}

	var out evolutionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return SendResult{}, fault.Wrap(fault.Transient, err, "evolution: failed to parse response")
	}

	return SendResult{MessageID: out.Key.ID}, nil
}
