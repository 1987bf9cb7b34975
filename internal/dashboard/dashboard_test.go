package dashboard

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/mschirtzinger/flowboard/internal/backend"
	"github.com/mschirtzinger/flowboard/internal/board"
	"github.com/mschirtzinger/flowboard/internal/risk"
	"github.com/mschirtzinger/flowboard/internal/schema"
	"github.com/mschirtzinger/flowboard/internal/view"
)

type memBackend struct {
	mu   sync.Mutex
	name string
	fail bool
	doc  *schema.Document
}

func (m *memBackend) Name() string { return m.name }

func (m *memBackend) Read(context.Context) (*schema.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.doc == nil {
		return nil, backend.ErrNoData
	}
	return m.doc.Clone(), nil
}

func (m *memBackend) Write(_ context.Context, doc *schema.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return backend.Errorf(m.name, "write", backend.ErrUnreachable, "down")
	}
	m.doc = doc.Clone()
	return nil
}

func fixedNow() time.Time {
	return time.Date(2023, 11, 17, 12, 0, 0, 0, time.Local)
}

func startServer(t *testing.T, b *board.Board) *Server {
	t.Helper()
	return startServerWith(t, b, &Config{})
}

func startServerWith(t *testing.T, b *board.Board, cfg *Config) *Server {
	t.Helper()
	cfg.Port = 0
	cfg.Now = fixedNow
	cfg.Logger = log.New(io.Discard, "", 0)
	server := NewServer(b, cfg)
	if err := server.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	t.Cleanup(func() { _ = server.Stop() })
	return server
}

func readMessage(t *testing.T, ctx context.Context, conn *websocket.Conn) Message {
	t.Helper()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("failed to unmarshal message: %v", err)
	}
	return msg
}

func TestServerStartStop(t *testing.T) {
	b := board.New(schema.Sample(), &memBackend{name: "local"}, nil, log.New(io.Discard, "", 0))
	server := NewServer(b, &Config{Port: 0, Logger: log.New(io.Discard, "", 0)})

	if err := server.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	if server.GetAddr() == "" {
		t.Fatal("Server address is empty")
	}
	if err := server.Stop(); err != nil {
		t.Fatalf("Failed to stop server: %v", err)
	}
}

func TestWebSocket_InitialBoardAndSaves(t *testing.T) {
	quiet := log.New(io.Discard, "", 0)
	b := board.New(schema.Sample(), &memBackend{name: "local"}, &memBackend{name: "server", fail: true}, quiet)
	server := startServer(t, b)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws://"+server.GetAddr()+"/ws", nil)
	if err != nil {
		t.Fatalf("Failed to connect WebSocket: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	welcome := readMessage(t, ctx, conn)
	if welcome.Type != MessageTypeDocument {
		t.Fatalf("welcome type = %s, want %s", welcome.Type, MessageTypeDocument)
	}
	var initial BoardData
	if err := json.Unmarshal(welcome.Data, &initial); err != nil {
		t.Fatal(err)
	}
	if initial.Document.Project.Name != schema.SampleProjectName {
		t.Errorf("initial project = %q", initial.Document.Project.Name)
	}
	if initial.Today != "2023-11-17" || initial.Status != board.StatusServer {
		t.Errorf("initial today=%s status=%s", initial.Today, initial.Status)
	}

	// Wait for registration before mutating.
	deadline := time.Now().Add(2 * time.Second)
	for server.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if _, _, err := b.ToggleTask(ctx, "t1"); err != nil {
		t.Fatal(err)
	}

	changed := readMessage(t, ctx, conn)
	if changed.Type != MessageTypeDocument {
		t.Fatalf("first message after save = %s, want %s", changed.Type, MessageTypeDocument)
	}
	var data BoardData
	if err := json.Unmarshal(changed.Data, &data); err != nil {
		t.Fatal(err)
	}
	if got := data.Risk["t2"].Status; got != risk.StatusBlocked {
		t.Errorf("t2 risk after reopening t1 = %s, want blocked", got)
	}

	status := readMessage(t, ctx, conn)
	if status.Type != MessageTypeSaveStatus {
		t.Fatalf("second message = %s, want %s", status.Type, MessageTypeSaveStatus)
	}
	var st SaveStatusData
	if err := json.Unmarshal(status.Data, &st); err != nil {
		t.Fatal(err)
	}
	if st.Status != board.StatusServerFailed || st.Error == "" {
		t.Errorf("save status = %+v, want server-sync-failed with error", st)
	}
}

func TestHTTPEndpoints(t *testing.T) {
	b := board.New(schema.Sample(), &memBackend{name: "local"}, nil, log.New(io.Discard, "", 0))
	server := startServer(t, b)
	base := "http://" + server.GetAddr()

	get := func(path string, v interface{}) {
		t.Helper()
		resp, err := http.Get(base + path)
		if err != nil {
			t.Fatalf("GET %s failed: %v", path, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s = %d", path, resp.StatusCode)
		}
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("GET %s: decode failed: %v", path, err)
		}
	}

	var health map[string]interface{}
	get("/health", &health)
	if health["status"] != "ok" || health["connection"] != string(board.StatusLocal) {
		t.Errorf("health = %v", health)
	}

	var data BoardData
	get("/api/board", &data)
	if len(data.Document.Tasks) != 3 || len(data.Risk) != 3 {
		t.Errorf("board has %d tasks and %d risk results, want 3 and 3", len(data.Document.Tasks), len(data.Risk))
	}
	if data.Summary.Done != 1 {
		t.Errorf("summary = %+v, want 1 done", data.Summary)
	}

	var rows []view.Row
	get("/api/timeline", &rows)
	if len(rows) != 8 || rows[0].Kind != view.KindParent {
		t.Errorf("timeline = %d rows starting with %+v", len(rows), rows)
	}

	resp, err := http.Get(base + "/nope")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET /nope = %d, want 404", resp.StatusCode)
	}
}

func TestConfigReloadedBroadcast(t *testing.T) {
	b := board.New(schema.Sample(), &memBackend{name: "local"}, nil, log.New(io.Discard, "", 0))
	server := startServer(t, b)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws://"+server.GetAddr()+"/ws", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")
	readMessage(t, ctx, conn)

	deadline := time.Now().Add(2 * time.Second)
	for server.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	server.Handler().OnConfigReloaded("/tmp/config.toml")
	if msg := readMessage(t, ctx, conn); msg.Type != MessageTypeConfigReloaded {
		t.Errorf("message = %s, want %s", msg.Type, MessageTypeConfigReloaded)
	}
}

func dial(t *testing.T, ctx context.Context, server *Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.Dial(ctx, "ws://"+server.GetAddr()+"/ws", nil)
	if err != nil {
		t.Fatalf("Failed to connect WebSocket: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	if msg := readMessage(t, ctx, conn); msg.Type != MessageTypeDocument {
		t.Fatalf("welcome type = %s, want %s", msg.Type, MessageTypeDocument)
	}
	return conn
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func readBoard(t *testing.T, ctx context.Context, conn *websocket.Conn) BoardData {
	t.Helper()
	msg := readMessage(t, ctx, conn)
	if msg.Type != MessageTypeDocument {
		t.Fatalf("message = %s, want %s", msg.Type, MessageTypeDocument)
	}
	var data BoardData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		t.Fatal(err)
	}
	return data
}

func TestMutationRoutes(t *testing.T) {
	local := &memBackend{name: "local"}
	b := board.New(schema.Sample(), local, nil, log.New(io.Discard, "", 0))
	server := startServer(t, b)
	base := "http://" + server.GetAddr()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dial(t, ctx, server)

	resp := post(t, base+"/api/tasks/t1/toggle", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("toggle = %d, want 200", resp.StatusCode)
	}
	var result MutationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.TaskStatus != schema.StatusPending || result.Save.Status != board.StatusLocal {
		t.Errorf("toggle result = %+v", result)
	}

	data := readBoard(t, ctx, conn)
	if got := data.Document.FindTask("t1").Status; got != schema.StatusPending {
		t.Errorf("t1 after toggle = %s, want pending", got)
	}
	if msg := readMessage(t, ctx, conn); msg.Type != MessageTypeSaveStatus {
		t.Errorf("message after document = %s, want %s", msg.Type, MessageTypeSaveStatus)
	}

	resp = post(t, base+"/api/tasks/t2/dates", `{"startDate":"2023-11-08","endDate":"2023-11-12"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("task dates = %d, want 200", resp.StatusCode)
	}
	data = readBoard(t, ctx, conn)
	if got := data.Document.FindTask("t2"); got.StartDate != "2023-11-08" || got.Duration != 4 {
		t.Errorf("t2 after move = %+v", got)
	}
	readMessage(t, ctx, conn)

	resp = post(t, base+"/api/modules/m1/dates", `{"startDate":"2023-11-02","endDate":"2023-11-20"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("module dates = %d, want 200", resp.StatusCode)
	}
	data = readBoard(t, ctx, conn)
	if got := data.Document.FindModule("m1"); got.EndDate != "2023-11-20" {
		t.Errorf("m1 after move = %+v", got)
	}

	saved, err := local.Read(ctx)
	if err != nil {
		t.Fatalf("local Read() failed: %v", err)
	}
	if saved.FindModule("m1").EndDate != "2023-11-20" {
		t.Error("module move was not saved locally")
	}
}

func TestMutationRoutes_Rejected(t *testing.T) {
	local := &memBackend{name: "local"}
	b := board.New(schema.Sample(), local, nil, log.New(io.Discard, "", 0))
	server := startServer(t, b)
	base := "http://" + server.GetAddr()

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"unknown task", "/api/tasks/nope/toggle", "", http.StatusNotFound},
		{"unknown module", "/api/modules/nope/dates", `{"startDate":"2023-11-01","endDate":"2023-11-02"}`, http.StatusNotFound},
		{"bad body", "/api/tasks/t1/dates", `{`, http.StatusBadRequest},
		{"bad date", "/api/tasks/t1/dates", `{"startDate":"soon","endDate":"2023-11-02"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if resp := post(t, base+tt.path, tt.body); resp.StatusCode != tt.want {
				t.Errorf("POST %s = %d, want %d", tt.path, resp.StatusCode, tt.want)
			}
		})
	}
	if doc, err := local.Read(context.Background()); err == nil {
		t.Errorf("rejected mutations saved a board: %s", doc.Project.Name)
	}
}

func TestReloadBroadcast(t *testing.T) {
	local := &memBackend{name: "local"}
	b := board.New(schema.Sample(), local, nil, log.New(io.Discard, "", 0))
	server := startServerWith(t, b, &Config{ReloadInterval: 20 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dial(t, ctx, server)

	// Another process saves to the shared cache.
	other := schema.Sample()
	other.Project.Name = "Saved elsewhere"
	if err := local.Write(ctx, other); err != nil {
		t.Fatal(err)
	}

	data := readBoard(t, ctx, conn)
	if data.Document.Project.Name != "Saved elsewhere" {
		t.Errorf("reloaded project = %q", data.Document.Project.Name)
	}
	if got := b.Snapshot().Project.Name; got != "Saved elsewhere" {
		t.Errorf("board project = %q, want reloaded name", got)
	}
}
