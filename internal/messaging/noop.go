package messaging

import "context"

// NoopMessageID is the fixed identifier the no-op provider returns.
const NoopMessageID = "mock-message-id"

// NoopSender is the default provider for tenants that have not picked a
// real one. It performs no validation and no I/O, so the rest of the
// pipeline can be exercised deterministically without network access.
type NoopSender struct{}

// Send always succeeds with the fixed placeholder message identifier.
func (s *NoopSender) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	return SendResult{MessageID: NoopMessageID}, nil
}
