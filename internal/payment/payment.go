// Package payment abstracts checkout session creation. The local provider
// stands in for a hosted payment page during development; a real gateway
// implements the same interface.
package payment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// SessionParams describes one checkout for one tour.
type SessionParams struct {
	TourID      uuid.UUID
	TourName    string
	UserID      uuid.UUID
	UserEmail   string
	AmountCents int64
	Currency    string
	SuccessURL  string
	CancelURL   string
}

// Session is a created checkout the client is redirected to.
type Session struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	AmountCents int64  `json:"amountCents"`
	Currency    string `json:"currency"`
}

type SessionProvider interface {
	CreateCheckoutSession(ctx context.Context, params SessionParams) (*Session, error)
}

var _ SessionProvider = (*LocalProvider)(nil)

// LocalProvider issues self-contained sessions that immediately redirect to
// the success URL. It performs no charge.
type LocalProvider struct {
	logger *slog.Logger
}

func NewLocalProvider(logger *slog.Logger) *LocalProvider {
	return &LocalProvider{logger: logger}
}

func (p *LocalProvider) CreateCheckoutSession(ctx context.Context, params SessionParams) (*Session, error) {
	if params.AmountCents <= 0 {
		return nil, fmt.Errorf("checkout amount must be positive, got %d", params.AmountCents)
	}

	session := &Session{
		ID:          "local_" + uuid.NewString(),
		URL:         params.SuccessURL,
		AmountCents: params.AmountCents,
		Currency:    params.Currency,
	}
	p.logger.InfoContext(ctx, "local checkout session created",
		slog.String("session_id", session.ID),
		slog.String("tour_id", params.TourID.String()),
		slog.Int64("amount_cents", params.AmountCents))
	return session, nil
}
