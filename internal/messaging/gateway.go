// Package messaging abstracts outbound WhatsApp delivery over multiple
// backend providers. The workflow core only depends on the Send
// contract; the wire details live in one adapter per provider.
package messaging

import (
	"context"
	"net/http"
	"strings"
	"time"

	"cartflow/internal/fault"
)

// Provider is the tag a tenant's configuration uses to pick a backend.
type Provider string

const (
	ProviderNoop      Provider = "NOOP"
	ProviderEvolution Provider = "EVOLUTION"
	ProviderZoko      Provider = "ZOKO"
	ProviderMeta      Provider = "META"
)

// SendRequest carries everything a provider needs to deliver one message.
type SendRequest struct {
	Token            string
	Destination      string
	Message          string
	MetaPhoneID      string
	MetaTemplateName string
}

// SendResult is the uniform outcome of a successful dispatch.
type SendResult struct {
	MessageID string `json:"message_id"`
}

// Sender is the single capability all providers implement.
type Sender interface {
	Send(ctx context.Context, req SendRequest) (SendResult, error)
}

// Gateway routes a send to the adapter registered for the provider tag.
// An unknown tag is a configuration error, not a code-path bug.
type Gateway struct {
	senders map[Provider]Sender
}

// NewGateway creates a gateway with all built-in providers registered.
// A nil client gets a sane default timeout.
func NewGateway(client *http.Client) *Gateway {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &Gateway{
		senders: map[Provider]Sender{
			ProviderNoop:      &NoopSender{},
			ProviderEvolution: NewEvolutionSender(client),
			ProviderZoko:      NewZokoSender(client),
			ProviderMeta:      NewMetaSender(client),
		},
	}
}

// Register overrides or adds a provider adapter.
func (g *Gateway) Register(p Provider, s Sender) {
	g.senders[p] = s
}

// Send dispatches the message through the adapter registered for the tag.
func (g *Gateway) Send(ctx context.Context, provider Provider, req SendRequest) (SendResult, error) {
	sender, ok := g.senders[provider]
	if !ok {
		return SendResult{}, fault.New(fault.NotFound, "no sender registered for provider %q", provider)
	}
	return sender.Send(ctx, req)
}

// NormalizeDestination strips all non-digit characters from the raw
// destination. An input with no digits at all is an InvalidDestination
// fault.
func NormalizeDestination(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "", fault.New(fault.InvalidDestination, "destination %q has no digits", raw)
	}
	return b.String(), nil
}

// classifyStatus maps a provider HTTP status to the fault taxonomy.
// Auth rejections and bad destinations are not retryable; everything
// else is treated as a transient provider condition.
func classifyStatus(provider string, status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fault.New(fault.InvalidCredentials, "%s: provider rejected credentials (status %d)", provider, status)
	case status == http.StatusBadRequest || status == http.StatusNotFound:
		return fault.New(fault.InvalidDestination, "%s: provider rejected destination (status %d)", provider, status)
	default:
		return fault.New(fault.Transient, "%s: provider returned status %d", provider, status)
	}
}
