// Package analytics reports conversion goals. Delivery is fire-and-forget:
// failures are logged and never reach the caller.
package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Goal names a conversion event.
type Goal string

const (
	RegistrationStart    Goal = "registration_start"
	RegistrationComplete Goal = "registration_complete"
	LoginSuccess         Goal = "login_success"

	TreeFirstSave Goal = "tree_first_save"
	PersonAdded   Goal = "person_added"
	TreeExported  Goal = "tree_exported"
	TreeImported  Goal = "tree_imported"

	PricingViewed Goal = "pricing_viewed"
	PlanSelected  Goal = "plan_selected"

	PaymentStart   Goal = "payment_start"
	PaymentSuccess Goal = "payment_success"

	HelpOpened      Goal = "help_opened"
	DashboardOpened Goal = "dashboard_opened"
)

// DefaultCounter is the counter id goals are reported against.
const DefaultCounter = 101026698

var catalog = map[Goal]struct{}{
	RegistrationStart: {}, RegistrationComplete: {}, LoginSuccess: {},
	TreeFirstSave: {}, PersonAdded: {}, TreeExported: {}, TreeImported: {},
	PricingViewed: {}, PlanSelected: {},
	PaymentStart: {}, PaymentSuccess: {},
	HelpOpened: {}, DashboardOpened: {},
}

// Known reports whether g is in the goal catalog.
func Known(g Goal) bool {
	_, ok := catalog[g]
	return ok
}

// Event is one reported goal.
type Event struct {
	Counter int64          `json:"counter"`
	Goal    Goal           `json:"goal"`
	Params  map[string]any `json:"params,omitempty"`
}

// Sink delivers events.
type Sink interface {
	Send(ctx context.Context, ev Event) error
}

// NoopSink drops every event.
type NoopSink struct{}

// Send implements Sink.
func (NoopSink) Send(context.Context, Event) error { return nil }

// HTTPSink posts events as JSON to Endpoint.
type HTTPSink struct {
	Endpoint   string
	HTTPClient *http.Client
}

// NewHTTPSink returns a sink with a short-timeout client.
func NewHTTPSink(endpoint string) *HTTPSink {
	return &HTTPSink{Endpoint: endpoint, HTTPClient: &http.Client{Timeout: 5 * time.Second}}
}

// Send implements Sink.
func (s *HTTPSink) Send(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("analytics endpoint returned %d", resp.StatusCode)
	}
	return nil
}

// Tracker sends goals in the background.
type Tracker struct {
	sink    Sink
	counter int64
	logger  *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewTracker builds a tracker. A nil sink drops events; a zero counter uses
// DefaultCounter.
func NewTracker(sink Sink, counter int64, logger *slog.Logger) *Tracker {
	if sink == nil {
		sink = NoopSink{}
	}
	if counter == 0 {
		counter = DefaultCounter
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Tracker{sink: sink, counter: counter, logger: logger, timeout: 10 * time.Second}
}

// Send reports goal without blocking. Unknown goals are dropped.
func (t *Tracker) Send(ctx context.Context, goal Goal, params map[string]any) {
	if t == nil {
		return
	}
	if !Known(goal) {
		t.logger.Warn("unknown analytics goal dropped", "goal", string(goal))
		return
	}
	ev := Event{Counter: t.counter, Goal: goal, Params: params}
	// detached so a finished command does not cancel delivery
	ctx = context.WithoutCancel(ctx)
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		sendCtx, cancel := context.WithTimeout(ctx, t.timeout)
		defer cancel()
		if err := t.sink.Send(sendCtx, ev); err != nil {
			t.logger.Warn("analytics goal not delivered", "goal", string(goal), "error", err)
			return
		}
		t.logger.Debug("analytics goal sent", "goal", string(goal))
	}()
}

// Wait blocks until every pending send has finished.
func (t *Tracker) Wait() {
	if t == nil {
		return
	}
	t.wg.Wait()
}
