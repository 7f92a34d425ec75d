package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"

	"cartflow/internal/fault"
	"cartflow/internal/logger"
	"cartflow/internal/messaging"
	"cartflow/internal/store"
	"cartflow/internal/tenant"
)

// Step names double as memo keys, so they must never change once runs
// exist in the database.
const (
	StepFetchTenantConfig = "fetch-tenant-config"
	StepWaitForDelay      = "wait-for-dynamic-delay"
	StepGenerateMessage   = "generate-message"
	StepDispatchMessage   = "dispatch-message"
)

const fallbackShopName = "tu tienda favorita"

// TriggerEvent is the cart-abandoned payload captured at trigger time.
// Older storefront integrations send "shop" and "cart_value" instead of
// "shop_domain" and "total_price"; both spellings are accepted.
type TriggerEvent struct {
	TenantID   string   `json:"tenant_id"`
	ShopDomain string   `json:"shop_domain,omitempty"`
	Shop       string   `json:"shop,omitempty"`
	TotalPrice *float64 `json:"total_price,omitempty"`
	CartValue  *float64 `json:"cart_value,omitempty"`
	Phone      string   `json:"phone,omitempty"`
}

// ShopName returns the storefront name for the outbound message.
func (t TriggerEvent) ShopName() string {
	if t.ShopDomain != "" {
		return t.ShopDomain
	}
	if t.Shop != "" {
		return t.Shop
	}
	return fallbackShopName
}

// Amount returns the abandoned cart value, zero when absent.
func (t TriggerEvent) Amount() float64 {
	if t.TotalPrice != nil {
		return *t.TotalPrice
	}
	if t.CartValue != nil {
		return *t.CartValue
	}
	return 0
}

// Outcome is what a fully advanced run produces.
type Outcome struct {
	MessageID string
}

// Pipeline is the abandonment recovery workflow. Advance is written to
// be re-entered any number of times per run: every effect goes through
// the executor's memo, so replays skip straight to the first
// not-yet-succeeded step.
type Pipeline struct {
	executor *Executor
	resolver *tenant.Resolver
	gateway  *messaging.Gateway
	runs     store.RunStore
	log      *slog.Logger
}

// NewPipeline wires the workflow steps to their dependencies.
func NewPipeline(executor *Executor, resolver *tenant.Resolver, gateway *messaging.Gateway, runs store.RunStore, log *slog.Logger) *Pipeline {
	return &Pipeline{
		executor: executor,
		resolver: resolver,
		gateway:  gateway,
		runs:     runs,
		log:      log,
	}
}

// Advance pushes the run as far as it can go in this entry. It returns
// a *Suspension when the run parked at its delay step, the step's fault
// when a step failed, or the Outcome once the final step succeeded.
func (p *Pipeline) Advance(ctx context.Context, run *store.WorkflowRun) (Outcome, error) {
	ctx = logger.WithRunID(ctx, run.ID.String())
	log := logger.FromContext(ctx, p.log)

	var trigger TriggerEvent
	if err := json.Unmarshal(run.TriggerPayload, &trigger); err != nil {
		return Outcome{}, fault.Wrap(fault.InvalidPayload, err, "trigger payload is malformed")
	}

	cfg, err := Run(ctx, p.executor, run.ID, StepFetchTenantConfig, func(ctx context.Context) (tenant.Config, error) {
		return p.resolver.Fetch(ctx, run.TenantID)
	})
	if err != nil {
		return Outcome{}, err
	}
	p.advanceCursor(ctx, run, 1)

	if err := p.executor.Suspend(ctx, run.ID, StepWaitForDelay, cfg.Delay()); err != nil {
		return Outcome{}, err
	}
	p.advanceCursor(ctx, run, 2)

	message, err := Run(ctx, p.executor, run.ID, StepGenerateMessage, func(ctx context.Context) (string, error) {
		return buildMessage(trigger), nil
	})
	if err != nil {
		return Outcome{}, err
	}
	p.advanceCursor(ctx, run, 3)

	result, err := Run(ctx, p.executor, run.ID, StepDispatchMessage, func(ctx context.Context) (messaging.SendResult, error) {
		destination := trigger.Phone
		if destination == "" {
			destination = cfg.DestinationPhone
		}

		return p.gateway.Send(ctx, messaging.Provider(cfg.Provider), messaging.SendRequest{
			Token:            cfg.ProviderToken,
			Destination:      destination,
			Message:          message,
			MetaPhoneID:      cfg.MetaPhoneID,
			MetaTemplateName: cfg.MetaTemplateName,
		})
	})
	if err != nil {
		return Outcome{}, err
	}
	p.advanceCursor(ctx, run, 4)

	log.Info("run dispatched message",
		"tenant_id", run.TenantID,
		"provider", cfg.Provider,
		"message_id", result.MessageID,
	)

	return Outcome{MessageID: result.MessageID}, nil
}

// advanceCursor is progress bookkeeping only; a failed write never
// stops the run, the memo is the source of truth on replay.
func (p *Pipeline) advanceCursor(ctx context.Context, run *store.WorkflowRun, step int) {
	if err := p.runs.SetRunCursor(ctx, run.ID, step); err != nil {
		logger.FromContext(ctx, p.log).Warn("cursor update failed", "step", step, "error", err)
	}
}

func buildMessage(t TriggerEvent) string {
	amount := strconv.FormatFloat(t.Amount(), 'f', -1, 64)
	return "Hola 👋, soy el asistente de " + t.ShopName() +
		". Vimos que dejaste un carrito por $" + amount +
		". ¿Te ayudo a finalizar tu compra?"
}
