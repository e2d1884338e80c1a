package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"

	"github.com/ayush/whattobuild/internal/httpx"
	"github.com/ayush/whattobuild/internal/middleware"
	"github.com/ayush/whattobuild/internal/models"
	"github.com/ayush/whattobuild/internal/store"
)

const (
	historyLimit   = 50
	maxWebhookBody = 1 << 20
)

// Package is a purchasable bundle of credits.
type Package struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Credits  int    `json:"credits"`
	PriceEUR int    `json:"price_eur"`
	Popular  bool   `json:"popular"`
}

// Packages lists the credit bundles offered at checkout.
var Packages = []Package{
	{ID: "starter", Name: "Starter", Credits: 10, PriceEUR: 9},
	{ID: "growth", Name: "Growth", Credits: 50, PriceEUR: 29, Popular: true},
	{ID: "pro", Name: "Pro", Credits: 150, PriceEUR: 59},
}

// Accounts is the ledger surface the HTTP handlers need.
type Accounts interface {
	Balance(ctx context.Context, userID string) (int, error)
	TopUp(ctx context.Context, userID string, credits int, externalID, description string) (bool, error)
	History(ctx context.Context, userID string, limit int) ([]models.Transaction, error)
}

// Handler serves the credit endpoints and the payment webhook.
type Handler struct {
	accounts Accounts
	secret   string
	log      zerolog.Logger
}

// NewHandler builds the billing handlers. webhookSecret is the Stripe
// endpoint signing secret; an empty secret rejects every delivery.
func NewHandler(accounts Accounts, webhookSecret string, log zerolog.Logger) *Handler {
	return &Handler{accounts: accounts, secret: webhookSecret, log: log.With().Str("component", "billing").Logger()}
}

// Credits returns the current balance and the purchasable packages.
func (h *Handler) Credits(w http.ResponseWriter, r *http.Request) {
	balance, err := h.accounts.Balance(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		httpx.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"balance": balance, "packages": Packages})
}

// History returns the latest ledger entries.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	txs, err := h.accounts.History(r.Context(), middleware.UserID(r.Context()), historyLimit)
	if err != nil {
		httpx.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, txs)
}

// Webhook applies completed checkout sessions as credit top-ups.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "unreadable body")
		return
	}

	ev, err := constructEvent(body, r.Header.Get(SignatureHeader), h.secret)
	if err != nil {
		h.log.Warn().Err(err).Msg("rejected stripe webhook")
		if errors.Is(err, ErrMissingSignature) {
			httpx.Error(w, http.StatusBadRequest, "missing signature")
			return
		}
		httpx.Error(w, http.StatusBadRequest, "webhook verification failed")
		return
	}

	if ev.Type == stripe.EventTypeCheckoutSessionCompleted {
		var session stripe.CheckoutSession
		if ev.Data == nil || json.Unmarshal(ev.Data.Raw, &session) != nil {
			httpx.Error(w, http.StatusBadRequest, "invalid payload")
			return
		}
		userID := session.Metadata["userId"]
		credits, _ := strconv.Atoi(session.Metadata["credits"])
		if userID == "" || credits <= 0 || session.ID == "" {
			httpx.Error(w, http.StatusBadRequest, "missing metadata")
			return
		}

		applied, err := h.accounts.TopUp(r.Context(), userID, credits, session.ID, fmt.Sprintf("Purchased %d credits", credits))
		if errors.Is(err, store.ErrNotFound) {
			httpx.Error(w, http.StatusNotFound, "user not found")
			return
		}
		if err != nil {
			h.log.Error().Err(err).Str("session", session.ID).Msg("top up failed")
			httpx.Error(w, http.StatusInternalServerError, "top up failed")
			return
		}
		h.log.Info().Str("user_id", userID).Int("credits", credits).Bool("applied", applied).Str("session", session.ID).Msg("credits purchased")
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
}
