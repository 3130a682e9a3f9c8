package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"famtree/pkg/family"
)

type recordedCall struct {
	op      string
	success bool
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (r *fakeRecorder) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	r.mu.Lock()
	r.calls = append(r.calls, recordedCall{op, success})
	r.mu.Unlock()
}

func endpointsFor(srv *httptest.Server) Endpoints {
	return Endpoints{Auth: srv.URL + "/auth", Save: srv.URL + "/save", Load: srv.URL + "/load", List: srv.URL + "/list"}
}

func TestSaveSendsBodyAndHeaders(t *testing.T) {
	var got SaveRequest
	var headers http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"tree_id":null`) {
			t.Errorf("new tree must send tree_id null, got %s", body)
		}
		_ = json.Unmarshal(body, &got)
		_, _ = w.Write([]byte(`{"tree_id": 17}`))
	}))
	defer srv.Close()

	rec := &fakeRecorder{}
	c := NewClient(endpointsFor(srv), "demo@familytree.com", WithMetrics(rec), WithSessionToken("tok"))
	id, err := c.Save(context.Background(), SaveRequest{Title: "Моё семейное древо", Nodes: family.SeedTree().Nodes})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if id != 17 {
		t.Fatalf("unexpected id %d", id)
	}
	if got.UserEmail != "demo@familytree.com" || len(got.Nodes) != 1 || got.Edges == nil {
		t.Fatalf("unexpected request %+v", got)
	}
	if headers.Get("X-User-Email") != "demo@familytree.com" || headers.Get("X-Auth-Token") != "tok" || headers.Get("Content-Type") != "application/json" {
		t.Fatalf("unexpected headers %v", headers)
	}
	if len(rec.calls) != 1 || rec.calls[0] != (recordedCall{OpSave, true}) {
		t.Fatalf("unexpected metrics %+v", rec.calls)
	}
}

func TestSaveServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"user_email is required"}`))
	}))
	defer srv.Close()

	rec := &fakeRecorder{}
	c := NewClient(endpointsFor(srv), "", WithMetrics(rec))
	_, err := c.Save(context.Background(), SaveRequest{})
	var re *RemoteError
	if !errors.As(err, &re) || re.Status != http.StatusBadRequest || re.Message != "user_email is required" {
		t.Fatalf("expected remote error, got %v", err)
	}
	if UserMessage(err) != "user_email is required" {
		t.Fatalf("unexpected user message %q", UserMessage(err))
	}
	if rec.calls[0].success {
		t.Fatalf("failure must be recorded")
	}
}

func TestConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoints := endpointsFor(srv)
	srv.Close()

	c := NewClient(endpoints, "a@b.c")
	_, err := c.Save(context.Background(), SaveRequest{})
	if !errors.Is(err, ErrConnection) {
		t.Fatalf("expected connection error, got %v", err)
	}
	if UserMessage(err) != "connection failed" {
		t.Fatalf("unexpected message %q", UserMessage(err))
	}
	if UserMessage(nil) != "" {
		t.Fatalf("nil error must have empty message")
	}
}

func TestNotConfigured(t *testing.T) {
	c := NewClient(Endpoints{}, "")
	if _, err := c.List(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected not configured, got %v", err)
	}
	if _, err := c.OAuthURL(ProviderVK); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected not configured, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("tree_id") != "5" || r.URL.Query().Get("user_email") != "a@b.c" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"Tree not found or access denied"}`))
			return
		}
		_, _ = w.Write([]byte(`{"tree_id":"5","title":"T","description":null,
			"nodes":[{"id":"1","x":1,"y":2,"firstName":"A","gender":"male","isAlive":true},{"id":"2","gender":"female"}],
			"edges":[{"id":"e-1","source":"1","target":"2","type":"spouse"}],
			"created_at":"2025-01-01T00:00:00","updated_at":null}`))
	}))
	defer srv.Close()

	c := NewClient(endpointsFor(srv), "a@b.c")
	got, err := c.Load(context.Background(), 5)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.TreeID != 5 || got.Title != "T" || len(got.Tree.Nodes) != 2 || !got.Tree.Edges[0].IsSpouse() || got.CreatedAt == "" || got.UpdatedAt != "" {
		t.Fatalf("unexpected tree %+v", got)
	}
	if _, err := c.Load(context.Background(), 6); UserMessage(err) != "Tree not found or access denied" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestListAcceptsBothShapes(t *testing.T) {
	bodies := map[string]string{
		"wrapped": `{"trees":[{"id":3,"title":"Old","persons_count":7,"created_at":"c","updated_at":"u","description":null}]}`,
		"bare":    `[{"id":"3","name":"Old","nodesCount":7,"createdAt":"c","updatedAt":"u"}]`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()
			trees, err := NewClient(endpointsFor(srv), "a@b.c").List(context.Background())
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			want := TreeSummary{ID: 3, Name: "Old", CreatedAt: "c", UpdatedAt: "u", NodesCount: 7}
			if len(trees) != 1 || trees[0] != want {
				t.Fatalf("unexpected trees %+v", trees)
			}
		})
	}
}

func TestAuthFlow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("action") {
		case "login":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["password"] != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"Invalid email or password"}`))
				return
			}
			_, _ = w.Write([]byte(`{"user_id":1,"email":"a@b.c","display_name":"A","session_token":"s1"}`))
		case "register":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"user_id":2,"email":"` + body["email"] + `","display_name":"` + body["display_name"] + `","session_token":"s2"}`))
		case "verify":
			if r.Header.Get("X-Session-Token") != "s1" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"Invalid session token"}`))
				return
			}
			_, _ = w.Write([]byte(`{"user_id":1,"email":"a@b.c"}`))
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	c := NewClient(endpointsFor(srv), "")
	if _, err := c.Login(ctx, "a@b.c", "wrong"); UserMessage(err) != "Invalid email or password" {
		t.Fatalf("unexpected login error %v", err)
	}
	sess, err := c.Login(ctx, "a@b.c", "secret")
	if err != nil || sess.Token != "s1" || sess.User.DisplayName != "A" || c.SessionToken != "s1" {
		t.Fatalf("unexpected session %+v %v", sess, err)
	}
	user, err := c.Verify(ctx)
	if err != nil || user.ID != 1 {
		t.Fatalf("verify: %+v %v", user, err)
	}
	reg, err := NewClient(endpointsFor(srv), "").Register(ctx, "n@b.c", "pw", "Nina")
	if err != nil || reg.Token != "s2" || reg.User.DisplayName != "Nina" {
		t.Fatalf("register: %+v %v", reg, err)
	}
	if _, err := NewClient(endpointsFor(srv), "").Verify(ctx); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected missing token, got %v", err)
	}
}

func TestOAuthAndCallback(t *testing.T) {
	c := NewClient(Endpoints{Auth: "https://auth.example/fn?x=1"}, "")
	u, err := c.OAuthURL(ProviderYandex)
	if err != nil || !strings.Contains(u, "provider=yandex") || !strings.Contains(u, "x=1") {
		t.Fatalf("unexpected url %q %v", u, err)
	}
	if _, err := c.OAuthURL("google"); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("expected unknown provider, got %v", err)
	}
	tok, err := CallbackToken("http://localhost:5173/auth/callback?session_token=abc")
	if err != nil || tok != "abc" {
		t.Fatalf("unexpected token %q %v", tok, err)
	}
	if _, err := CallbackToken("http://localhost/auth/callback"); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected missing token, got %v", err)
	}
}

func TestTreeIDDecoding(t *testing.T) {
	cases := map[string]int64{`12`: 12, `"13"`: 13, `null`: 0, `""`: 0}
	for in, want := range cases {
		var id TreeID
		if err := json.Unmarshal([]byte(in), &id); err != nil || int64(id) != want {
			t.Fatalf("decode %s: %d %v", in, id, err)
		}
	}
	var id TreeID
	if err := json.Unmarshal([]byte(`"x"`), &id); err == nil {
		t.Fatalf("expected error for non-numeric id")
	}
}
