package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (s *recordingSink) Send(_ context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return s.err
}

func TestTrackerDeliversKnownGoals(t *testing.T) {
	sink := &recordingSink{}
	tr := NewTracker(sink, 0, nil)
	tr.Send(context.Background(), PersonAdded, map[string]any{"relation": "parent"})
	tr.Send(context.Background(), Goal("made_up"), nil)
	tr.Wait()
	if len(sink.events) != 1 {
		t.Fatalf("expected one event, got %+v", sink.events)
	}
	ev := sink.events[0]
	if ev.Goal != PersonAdded || ev.Counter != DefaultCounter || ev.Params["relation"] != "parent" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestTrackerSwallowsErrors(t *testing.T) {
	sink := &recordingSink{err: errors.New("offline")}
	tr := NewTracker(sink, 7, nil)
	ctx, cancel := context.WithCancel(context.Background())
	tr.Send(ctx, TreeExported, nil)
	cancel()
	tr.Wait()
	if len(sink.events) != 1 || sink.events[0].Counter != 7 {
		t.Fatalf("unexpected events %+v", sink.events)
	}
}

func TestNilTrackerIsSafe(t *testing.T) {
	var tr *Tracker
	tr.Send(context.Background(), HelpOpened, nil)
	tr.Wait()
}

func TestHTTPSink(t *testing.T) {
	var got Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		if got.Goal == TreeImported {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	sink := NewHTTPSink(srv.URL)
	if err := sink.Send(context.Background(), Event{Counter: 1, Goal: TreeFirstSave}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got.Goal != TreeFirstSave || got.Counter != 1 {
		t.Fatalf("unexpected body %+v", got)
	}
	if err := sink.Send(context.Background(), Event{Goal: TreeImported}); err == nil {
		t.Fatalf("expected status error")
	}
}

func TestCatalog(t *testing.T) {
	for _, g := range []Goal{RegistrationStart, RegistrationComplete, LoginSuccess, TreeFirstSave, PersonAdded,
		TreeExported, TreeImported, PricingViewed, PlanSelected, PaymentStart, PaymentSuccess, HelpOpened, DashboardOpened} {
		if !Known(g) {
			t.Fatalf("goal %s missing from catalog", g)
		}
	}
	if Known("") {
		t.Fatalf("empty goal must be unknown")
	}
}
