package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"

	"famtree/internal/metrics"
	"famtree/internal/persist"
	"famtree/pkg/family"
)

func init() { color.NoColor = true }

// profile isolates one test's config, local state and archive.
type profile struct {
	t   *testing.T
	dir string
}

func newProfile(t *testing.T) *profile {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("FAMTREE_CONFIG", "")
	t.Setenv("FAMTREE_STORAGE_DRIVER", "file")
	t.Setenv("FAMTREE_STATE_PATH", filepath.Join(dir, "state.json"))
	t.Setenv("FAMTREE_ARCHIVE_DRIVER", "fs")
	t.Setenv("FAMTREE_ARCHIVE_FS_ROOT", filepath.Join(dir, "archive"))
	t.Setenv("FAMTREE_LOG_LEVEL", "error")
	return &profile{t: t, dir: dir}
}

func (p *profile) run(args ...string) (string, string, int) {
	p.t.Helper()
	var out, errOut bytes.Buffer
	code := run(context.Background(), args, &out, &errOut)
	return out.String(), errOut.String(), code
}

func (p *profile) mustRun(args ...string) string {
	p.t.Helper()
	out, errOut, code := p.run(args...)
	if code != 0 {
		p.t.Fatalf("famtree %s: exit %d\n%s", strings.Join(args, " "), code, errOut)
	}
	return out
}

func (p *profile) tree() family.Tree {
	p.t.Helper()
	var buf bytes.Buffer
	buf.WriteString(p.mustRun("show", "--json"))
	tree, err := persist.Decode(&buf)
	if err != nil {
		p.t.Fatalf("decode show output: %v", err)
	}
	return tree
}

func TestRootCommand(t *testing.T) {
	root := newRootCmd(newApp(io.Discard, io.Discard))
	if root.Use != "famtree" || root.Short == "" {
		t.Fatalf("unexpected root command %q", root.Use)
	}
	for _, name := range []string{"init", "show", "add", "set", "rm", "stats", "layout", "timeline", "gesture",
		"save", "load", "list", "watch", "login", "register", "logout", "whoami", "oauth-url",
		"export", "import", "backup", "backups", "restore"} {
		if c, _, err := root.Find([]string{name}); err != nil || c.Name() != name {
			t.Errorf("missing command %s", name)
		}
	}
}

func TestEditingPersistsBetweenRuns(t *testing.T) {
	p := newProfile(t)
	p.mustRun("init", "--first", "Анна", "--last", "Иванова", "--gender", "female", "--father", "Пётр", "--mother", "Мария")

	tree := p.tree()
	if len(tree.Nodes) != 3 || len(tree.Edges) != 3 {
		t.Fatalf("onboarding tree has %d nodes, %d edges", len(tree.Nodes), len(tree.Edges))
	}
	if _, _, code := p.run("init"); code == 0 {
		t.Fatalf("init over an existing tree must require --force")
	}

	out := p.mustRun("add", "root", "child")
	if !strings.Contains(out, "added child") {
		t.Fatalf("unexpected add output %q", out)
	}
	p.mustRun("set", "root", "birthDate", "1990")
	p.mustRun("set", "root", "isAlive", "true")

	tree = p.tree()
	root, _ := tree.Root()
	if root.FirstName != "Анна" || root.BirthDate != "1990" || len(tree.Nodes) != 4 {
		t.Fatalf("edits not persisted: %+v", tree.Nodes)
	}

	child := tree.ChildIDs("root")
	if len(child) != 1 {
		t.Fatalf("expected one child, got %v", child)
	}
	p.mustRun("rm", child[0])
	if tree = p.tree(); len(tree.Nodes) != 3 {
		t.Fatalf("rm did not persist")
	}

	show := p.mustRun("show")
	if !strings.Contains(show, "Анна Иванова") || !strings.Contains(show, "3 people, 3 links") {
		t.Fatalf("unexpected show output:\n%s", show)
	}
}

func TestRuleViolationsExitNonZero(t *testing.T) {
	p := newProfile(t)
	p.mustRun("add", "root", "parent")
	if _, errOut, code := p.run("add", "root", "parent"); code == 0 || !strings.Contains(errOut, "same sex") {
		t.Fatalf("same-sex parent: exit %d %q", code, errOut)
	}
	p.mustRun("add", "root", "parent", "--gender", "female")
	_, errOut, code := p.run("add", "root", "parent", "--gender", "female")
	if code == 0 || !strings.Contains(errOut, "already has two parents") {
		t.Fatalf("third parent: exit %d %q", code, errOut)
	}
	if _, errOut, code = p.run("rm", "root"); code == 0 || !strings.Contains(errOut, "root person") {
		t.Fatalf("root delete: exit %d %q", code, errOut)
	}
	if _, errOut, code = p.run("add", "root", "cousin"); code == 0 || !strings.Contains(errOut, "unknown relation") {
		t.Fatalf("bad relation: exit %d %q", code, errOut)
	}
	if got := len(p.tree().Nodes); got != 3 {
		t.Fatalf("failed commands must not change the tree, got %d nodes", got)
	}
}

func TestExportImport(t *testing.T) {
	p := newProfile(t)
	p.mustRun("add", "root", "parent")
	p.mustRun("add", "root", "spouse")
	before := p.tree()

	file := filepath.Join(p.dir, "familytree.json")
	p.mustRun("export", file)

	var doc map[string]json.RawMessage
	data, _ := os.ReadFile(file)
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("export is not json: %v", err)
	}
	delete(doc, "edges")
	broken, _ := json.Marshal(doc)
	brokenFile := filepath.Join(p.dir, "broken.json")
	_ = os.WriteFile(brokenFile, broken, 0o600)

	_, errOut, code := p.run("import", brokenFile)
	if code == 0 || !strings.Contains(errOut, "invalid file format") {
		t.Fatalf("broken import: exit %d %q", code, errOut)
	}
	if !family.Equal(p.tree(), before) {
		t.Fatalf("failed import changed the tree")
	}

	p.mustRun("rm", before.SpouseIDs("root")[0])
	p.mustRun("import", file)
	if !family.Equal(p.tree(), before) {
		t.Fatalf("import did not restore the exported tree")
	}
}

func TestBackupRestore(t *testing.T) {
	p := newProfile(t)
	p.mustRun("add", "root", "sibling")
	before := p.tree()

	out := p.mustRun("backup", "weekly", "--compress")
	if !strings.Contains(out, "backups/weekly.json.zst") {
		t.Fatalf("unexpected backup output %q", out)
	}
	if out := p.mustRun("backups"); !strings.Contains(out, "weekly.json.zst") {
		t.Fatalf("backup not listed:\n%s", out)
	}
	p.mustRun("set", "root", "firstName", "changed")
	p.mustRun("restore", "weekly.json.zst")
	if !family.Equal(p.tree(), before) {
		t.Fatalf("restore did not bring back the backup")
	}
	if _, _, code := p.run("restore", "missing.json"); code == 0 {
		t.Fatalf("restoring a missing backup must fail")
	}
}

func TestStatsAndTimeline(t *testing.T) {
	p := newProfile(t)
	p.mustRun("init", "--first", "Иван", "--father", "Сергей")
	p.mustRun("set", "root", "birthDate", "1990")
	p.mustRun("set", "father", "birthDate", "1960")

	var d metrics.Dashboard
	if err := json.Unmarshal([]byte(p.mustRun("stats", "--json")), &d); err != nil {
		t.Fatalf("stats json: %v", err)
	}
	if d.Stats.TotalPeople != 2 || d.Stats.Generations != 3 || d.TimeSpan.Years != 30 {
		t.Fatalf("unexpected dashboard %+v", d.Stats)
	}
	if out := p.mustRun("stats"); !strings.Contains(out, "Achievement") {
		t.Fatalf("unexpected stats output:\n%s", out)
	}

	lines := strings.Split(p.mustRun("timeline"), "\n")
	if len(lines) < 4 || !strings.Contains(lines[2], "1960") || !strings.Contains(lines[3], "1990") {
		t.Fatalf("timeline not ordered by year:\n%s", strings.Join(lines, "\n"))
	}

	var scene struct {
		Boxes []json.RawMessage `json:"boxes"`
		Paths []json.RawMessage `json:"paths"`
	}
	if err := json.Unmarshal([]byte(p.mustRun("layout")), &scene); err != nil || len(scene.Boxes) != 2 || len(scene.Paths) != 1 {
		t.Fatalf("unexpected layout %v %+v", err, scene)
	}
}

func TestGestureReplayMovesNode(t *testing.T) {
	p := newProfile(t)
	events := strings.Join([]string{
		`{"type":"down","node":"root","x":10,"y":10}`,
		`{"type":"move","x":30,"y":10}`,
		`{"type":"move","x":70,"y":10}`,
		`{"type":"up","x":70,"y":10}`,
		`{"type":"down","node":"root","x":5,"y":5}`,
		`{"type":"up","x":5,"y":5}`,
		`{"type":"wheel","deltaY":-100}`,
	}, "\n")
	file := filepath.Join(p.dir, "events.jsonl")
	_ = os.WriteFile(file, []byte(events), 0o600)

	before, _ := p.tree().Root()
	out := p.mustRun("gesture", file)
	if !strings.Contains(out, "moved root") || !strings.Contains(out, "selected root") || !strings.Contains(out, "zoom=") {
		t.Fatalf("unexpected gesture output:\n%s", out)
	}
	after, _ := p.tree().Root()
	if after.X <= before.X || after.Y != before.Y {
		t.Fatalf("drag not persisted: %v -> %v", before.X, after.X)
	}

	_ = os.WriteFile(file, []byte(`{"type":"spin"}`), 0o600)
	if _, errOut, code := p.run("gesture", file); code == 0 || !strings.Contains(errOut, "line 1") {
		t.Fatalf("bad event: exit %d %q", code, errOut)
	}
}

// fakeBackend is a minimal tree service.
type fakeBackend struct {
	mu    sync.Mutex
	saves []map[string]any
	tree  []byte
}

func (b *fakeBackend) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/save", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		_ = json.Unmarshal(body, &req)
		b.saves = append(b.saves, req)
		b.tree = body
		_, _ = io.WriteString(w, `{"tree_id": 42}`)
	})
	mux.HandleFunc("/load", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if r.URL.Query().Get("tree_id") != "42" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":"Tree not found or access denied"}`)
			return
		}
		_, _ = w.Write(b.tree)
	})
	mux.HandleFunc("/list", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"trees":[{"id":42,"title":"Моё семейное древо","persons_count":2,"updated_at":"2025-01-01"}]}`)
	})
	mux.HandleFunc("/auth", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("action") {
		case "login":
			_, _ = io.WriteString(w, `{"user_id":1,"email":"demo@familytree.com","session_token":"tok"}`)
		case "verify":
			if r.Header.Get("X-Session-Token") != "tok" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = io.WriteString(w, `{"error":"Invalid session"}`)
				return
			}
			_, _ = io.WriteString(w, `{"user_id":1,"email":"demo@familytree.com","display_name":"Demo"}`)
		default:
			t.Errorf("unexpected auth action %q", r.URL.RawQuery)
		}
	})
	return mux
}

func TestRemoteSync(t *testing.T) {
	p := newProfile(t)
	backend := &fakeBackend{}
	srv := httptest.NewServer(backend.handler(t))
	defer srv.Close()
	t.Setenv("FAMTREE_SAVE_URL", srv.URL+"/save")
	t.Setenv("FAMTREE_LOAD_URL", srv.URL+"/load")
	t.Setenv("FAMTREE_LIST_URL", srv.URL+"/list")
	t.Setenv("FAMTREE_AUTH_URL", srv.URL+"/auth")

	if _, errOut, code := p.run("whoami"); code == 0 {
		t.Fatalf("whoami without a session must fail: %q", errOut)
	}
	if out := p.mustRun("login", "--email", "demo@familytree.com", "--password", "demo123"); !strings.Contains(out, "signed in as demo@familytree.com") {
		t.Fatalf("unexpected login output %q", out)
	}
	if out := p.mustRun("whoami"); !strings.Contains(out, "Demo") {
		t.Fatalf("session not reused: %q", out)
	}

	p.mustRun("add", "root", "parent")
	if out := p.mustRun("save"); !strings.Contains(out, "saved tree 42") {
		t.Fatalf("unexpected save output %q", out)
	}
	p.mustRun("save")
	if len(backend.saves) != 2 || backend.saves[0]["tree_id"] != nil || backend.saves[1]["tree_id"] != float64(42) {
		t.Fatalf("second save must reuse the id: %+v", backend.saves)
	}
	if backend.saves[0]["user_email"] != "demo@familytree.com" {
		t.Fatalf("session e-mail not used: %+v", backend.saves[0])
	}

	if out := p.mustRun("list"); !strings.Contains(out, "*42") {
		t.Fatalf("current tree not marked:\n%s", out)
	}
	p.mustRun("rm", p.tree().ParentIDs("root")[0])
	p.mustRun("load", "42")
	if got := len(p.tree().Nodes); got != 2 {
		t.Fatalf("load did not replace local tree, %d nodes", got)
	}
	if _, errOut, code := p.run("load", "7"); code == 0 || !strings.Contains(errOut, "Tree not found or access denied") {
		t.Fatalf("missing tree: exit %d %q", code, errOut)
	}

	p.mustRun("logout")
	if _, _, code := p.run("whoami"); code == 0 {
		t.Fatalf("whoami after logout must fail")
	}
	if out := p.mustRun("oauth-url", "vk"); !strings.Contains(out, "provider=vk") {
		t.Fatalf("unexpected oauth url %q", out)
	}
}

func TestRemoteCommandsWithoutEndpoints(t *testing.T) {
	p := newProfile(t)
	for _, args := range [][]string{{"save"}, {"list"}, {"watch"}, {"login", "--email", "a", "--password", "b"}} {
		if _, errOut, code := p.run(args...); code == 0 || !strings.Contains(errOut, "not configured") {
			t.Fatalf("%v: exit %d %q", args, code, errOut)
		}
	}
}

func TestWatchLoopAutosaves(t *testing.T) {
	p := newProfile(t)
	backend := &fakeBackend{}
	srv := httptest.NewServer(backend.handler(t))
	defer srv.Close()
	t.Setenv("FAMTREE_SAVE_URL", srv.URL+"/save")
	p.mustRun("add", "root", "spouse")

	a := newApp(io.Discard, io.Discard)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := a.open(ctx); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = a.close() }()
	if _, err := a.useAutosave(10 * time.Millisecond); err != nil {
		t.Fatalf("autosave: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- watchLoop(ctx, a, 5*time.Millisecond) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		backend.mu.Lock()
		n := len(backend.saves)
		backend.mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("watch never saved")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("watch loop: %v", err)
	}
	a.adapter.Close()
	if id, ok := a.local.TreeID(context.Background()); !ok || id != 42 {
		t.Fatalf("tree id not stored: %d %v", id, ok)
	}
}

func TestAddChildAfterDefaultSpouse(t *testing.T) {
	p := newProfile(t)
	p.mustRun("add", "root", "spouse")
	p.mustRun("add", "root", "child")
	tree := p.tree()
	if len(tree.Nodes) != 3 {
		t.Fatalf("expected 3 people, got %d", len(tree.Nodes))
	}
	child := tree.Nodes[2]
	if child.X != 400 || child.Y != 480 || len(tree.ParentIDs(child.ID)) != 2 {
		t.Fatalf("child %+v parents %v", child, tree.ParentIDs(child.ID))
	}
}
