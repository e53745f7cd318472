package api

import (
	"github.com/SherClockHolmes/webpush-go"

	"appliance-reserve-backend/internal/notify"
	"appliance-reserve-backend/internal/reserve"
	"appliance-reserve-backend/internal/store"
	"appliance-reserve-backend/internal/timesrc"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	mutator *reserve.Mutator
	hub     *notify.Hub
	clock   timesrc.Clock
	webpush *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, mutator *reserve.Mutator, hub *notify.Hub, clock timesrc.Clock, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		store:   s,
		mutator: mutator,
		hub:     hub,
		clock:   clock,
		webpush: webpushOptions,
	}
}
