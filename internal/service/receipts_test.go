package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/blogpush/notify-backend/internal/model"
	"github.com/blogpush/notify-backend/internal/provider/expo"
	"github.com/blogpush/notify-backend/internal/service"
)

func newChecker(tokens *MockTokenRepo, tickets *MockTicketRepo, provider *MockProvider) *service.ReceiptChecker {
	return &service.ReceiptChecker{
		Tokens:   tokens,
		Tickets:  tickets,
		Provider: provider,
		Log:      zerolog.Nop(),
		Lookback: 24 * time.Hour,
	}
}

func TestReceiptCheckDeletesResolvedTickets(t *testing.T) {
	tokens := tokenRepoWith(validToken("A"), validToken("B"), validToken("C"))
	tickets := &MockTicketRepo{
		Pending: []model.PendingTicket{
			{ID: 10, ExpoTicketID: "r-1", PushTokenID: 1, Token: validToken("A")},
			{ID: 11, ExpoTicketID: "r-2", PushTokenID: 2, Token: validToken("B")},
			{ID: 12, ExpoTicketID: "r-3", PushTokenID: 3, Token: validToken("C")},
		},
	}
	provider := &MockProvider{
		ReceiptTable: map[string]expo.Receipt{
			"r-1": {Status: "ok"},
			"r-2": {
				Status:  "error",
				Message: "device gone",
				Details: &expo.ErrorDetails{Error: expo.ReasonDeviceNotRegistered},
			},
			// r-3 missing: still processing.
		},
	}

	if err := newChecker(tokens, tickets, provider).Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deleted := map[int64]bool{}
	for _, id := range tickets.DeletedIDs {
		deleted[id] = true
	}
	if !deleted[10] || !deleted[11] {
		t.Errorf("resolved tickets 10 and 11 must be deleted, got %v", tickets.DeletedIDs)
	}
	if deleted[12] {
		t.Error("ticket 12 has no receipt yet and must stay for the next run")
	}
	if tokens.Has(validToken("B")) {
		t.Error("token B was reported unregistered and must be gone")
	}
	if !tokens.Has(validToken("A")) || !tokens.Has(validToken("C")) {
		t.Error("tokens A and C must survive")
	}
}

func TestReceiptCheckTransientFailureKeepsToken(t *testing.T) {
	tokens := tokenRepoWith(validToken("A"))
	tickets := &MockTicketRepo{
		Pending: []model.PendingTicket{
			{ID: 10, ExpoTicketID: "r-1", PushTokenID: 1, Token: validToken("A")},
		},
	}
	provider := &MockProvider{
		ReceiptTable: map[string]expo.Receipt{
			"r-1": {
				Status:  "error",
				Message: "rate limited",
				Details: &expo.ErrorDetails{Error: "MessageRateExceeded"},
			},
		},
	}

	if err := newChecker(tokens, tickets, provider).Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Resolved (deleted) but the token stays: the failure was not permanent.
	if len(tickets.DeletedIDs) != 1 || tickets.DeletedIDs[0] != 10 {
		t.Errorf("expected ticket 10 deleted, got %v", tickets.DeletedIDs)
	}
	if !tokens.Has(validToken("A")) {
		t.Error("token A must survive a transient delivery failure")
	}
}

func TestReceiptCheckChunkErrorIsIsolated(t *testing.T) {
	tokens := tokenRepoWith(validToken("A"))
	tickets := &MockTicketRepo{
		Pending: []model.PendingTicket{
			{ID: 10, ExpoTicketID: "r-1", PushTokenID: 1, Token: validToken("A")},
		},
	}
	provider := &MockProvider{
		ReceiptErr: func(ids []string) error { return errors.New("expo 5xx") },
	}

	if err := newChecker(tokens, tickets, provider).Run(context.Background()); err != nil {
		t.Fatalf("a failed lookup chunk must not fail the run, got %v", err)
	}

	if len(tickets.DeletedIDs) != 0 {
		t.Errorf("nothing resolved, nothing should be deleted, got %v", tickets.DeletedIDs)
	}
	if !tokens.Has(validToken("A")) {
		t.Error("token A must be untouched")
	}
}

func TestReceiptCheckNoPendingTickets(t *testing.T) {
	tokens := tokenRepoWith(validToken("A"))
	tickets := &MockTicketRepo{}
	provider := &MockProvider{}

	if err := newChecker(tokens, tickets, provider).Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(provider.ReceiptCalls) != 0 {
		t.Errorf("no tickets means no provider calls, got %d", len(provider.ReceiptCalls))
	}
}

func TestCleanerSweepsByAge(t *testing.T) {
	tickets := &MockTicketRepo{SweepCount: 7}
	cleaner := &service.Cleaner{
		Tickets: tickets,
		Log:     zerolog.Nop(),
		Age:     48 * time.Hour,
	}

	before := time.Now().Add(-48 * time.Hour)
	if err := cleaner.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	after := time.Now().Add(-48 * time.Hour)

	if tickets.SweepCutoff.Before(before) || tickets.SweepCutoff.After(after) {
		t.Errorf("sweep cutoff %v not within expected window", tickets.SweepCutoff)
	}
}
