package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/crypto/bcrypt"

	"github.com/dkeye/confer/internal/adapters/signal"
	"github.com/dkeye/confer/internal/app"
	"github.com/dkeye/confer/internal/app/orch"
	"github.com/dkeye/confer/internal/archive"
	"github.com/dkeye/confer/internal/attendance"
	"github.com/dkeye/confer/internal/auth"
	"github.com/dkeye/confer/internal/config"
	"github.com/dkeye/confer/internal/domain"
	"github.com/dkeye/confer/internal/sealer"
	"github.com/dkeye/confer/internal/session"
	"github.com/dkeye/confer/internal/store"
)

type testServer struct {
	srv *httptest.Server
	jwt *auth.JWT
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	st, err := store.OpenMemory(ctx, t.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = st.Close() })
	s, err := sealer.New(sealer.AES256GCM, bytes.Repeat([]byte{3}, 32))
	if err != nil {
		t.Fatal(err)
	}

	users := auth.NewJWT("user-secret", "confer")
	sessions := session.New(st, auth.OpenDirectory{}, session.Options{
		TokenSecret: "session-secret",
		TokenTTL:    time.Hour,
		BcryptCost:  bcrypt.MinCost,
	})
	chats := archive.New(st, s, false)
	ledger := attendance.New(st)
	o := &orch.Orchestrator{
		Registry:   app.NewRegistry(),
		Sessions:   sessions,
		Archive:    chats,
		Attendance: ledger,
		Policy:     app.IgnorePolicy{},
	}
	ctl := signal.NewSignalWSController(o, users, sessions, signal.Options{
		ReadLimit:      1 << 16,
		PingPeriod:     time.Minute,
		MaxSignalBytes: 1 << 12,
	})

	r := SetupRouter(ctx, &config.Config{Mode: "test"}, Deps{
		Signal:    ctl,
		Verifier:  users,
		Sessions:  sessions,
		Chats:     chats,
		Attendees: ledger,
		DB:        st,
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, jwt: users}
}

func (ts *testServer) credential(t *testing.T, uid domain.UserID) string {
	t.Helper()
	tok, err := ts.jwt.Issue(uid, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

type wsClient struct {
	t       *testing.T
	conn    *websocket.Conn
	pending []map[string]any
	refs    int
}

func (ts *testServer) dial(t *testing.T, credential string) (*wsClient, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/api/ws/signal?token=" + credential
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, resp, err
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &wsClient{t: t, conn: conn}, resp, nil
}

func (w *wsClient) send(ev map[string]any) {
	w.t.Helper()
	if err := w.conn.WriteJSON(ev); err != nil {
		w.t.Fatal(err)
	}
}

// next returns the first event matching pred, reading as needed.
func (w *wsClient) next(pred func(map[string]any) bool) map[string]any {
	w.t.Helper()
	for i, ev := range w.pending {
		if pred(ev) {
			w.pending = append(w.pending[:i], w.pending[i+1:]...)
			return ev
		}
	}
	for {
		_ = w.conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		var ev map[string]any
		if err := w.conn.ReadJSON(&ev); err != nil {
			w.t.Fatalf("read: %v", err)
		}
		if pred(ev) {
			return ev
		}
		w.pending = append(w.pending, ev)
	}
}

func (w *wsClient) call(ev map[string]any) map[string]any {
	w.t.Helper()
	w.refs++
	ref := fmt.Sprintf("%s-%d", ev["type"], w.refs)
	ev["ref"] = ref
	w.send(ev)
	return w.next(func(m map[string]any) bool { return m["type"] == "ack" && m["ref"] == ref })
}

func (w *wsClient) push(typ string, match func(map[string]any) bool) map[string]any {
	w.t.Helper()
	return w.next(func(m map[string]any) bool { return m["type"] == typ && (match == nil || match(m)) })
}

func wantStatus(t *testing.T, ack map[string]any, status string) {
	t.Helper()
	if ack["status"] != status {
		t.Fatalf("%s: status %v (%v), want %s", ack["event"], ack["status"], ack["error"], status)
	}
}

func postJSON(t *testing.T, url string, body any) (int, map[string]any) {
	t.Helper()
	b, _ := json.Marshal(body)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestHandshakeNeedsCredential(t *testing.T) {
	ts := newTestServer(t)
	_, resp, err := ts.dial(t, "bogus")
	if err == nil {
		t.Fatal("dial without a valid credential succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("handshake response = %v", resp)
	}
}

func TestSessionOverWebsocket(t *testing.T) {
	ts := newTestServer(t)
	aliceCred, bobCred := ts.credential(t, "alice"), ts.credential(t, "bob")

	alice, _, err := ts.dial(t, aliceCred)
	if err != nil {
		t.Fatal(err)
	}
	bob, _, err := ts.dial(t, bobCred)
	if err != nil {
		t.Fatal(err)
	}

	ack := alice.call(map[string]any{"type": "create", "uid": "alice", "token": aliceCred, "password": "pw1", "isChat": true})
	wantStatus(t, ack, "OK")
	sessionToken := ack["result"].(map[string]any)["sessionToken"].(string)

	ack = bob.call(map[string]any{"type": "join", "uid": "bob", "token": bobCred, "password": "wrong", "sessionToken": sessionToken})
	wantStatus(t, ack, "UNAUTHORIZED")
	ack = bob.call(map[string]any{"type": "join", "uid": "bob", "token": bobCred, "password": "pw1", "sessionToken": sessionToken, "audio": true})
	wantStatus(t, ack, "OK")
	result := ack["result"].(map[string]any)
	if users := result["users"].([]any); len(users) != 2 || result["creator"] != "alice" {
		t.Fatalf("join result = %v", result)
	}
	alice.push("joined", func(m map[string]any) bool { return m["uid"] == "bob" })

	// boundary validation
	wantStatus(t, bob.call(map[string]any{"type": "dance"}), "BAD_INPUT")
	wantStatus(t, bob.call(map[string]any{"type": "leave", "uid": "bob", "sessionToken": sessionToken, "extra": 1}), "BAD_INPUT")
	missing := bob.call(map[string]any{"type": "ready", "uid": "bob", "token": bobCred})
	wantStatus(t, missing, "BAD_INPUT")
	if !strings.Contains(missing["error"].(string), "sessionToken") {
		t.Fatalf("error = %v", missing["error"])
	}
	wantStatus(t, bob.call(map[string]any{"type": "ready", "uid": "alice", "token": bobCred, "sessionToken": sessionToken}), "UNAUTHORIZED")

	bob.send(map[string]any{"type": "ping"})
	bob.push("pong", nil)

	// signaling
	ack = bob.call(map[string]any{
		"type": "send_signal", "sender": "bob", "target": "alice", "sessionToken": sessionToken,
		"signal": map[string]any{"type": "offer", "sdp": "v=0"},
	})
	wantStatus(t, ack, "OK")
	offer := alice.push("send_signal", nil)
	if offer["sender"] != "bob" || offer["signal"].(map[string]any)["sdp"] != "v=0" {
		t.Fatalf("relayed offer = %v", offer)
	}
	wantStatus(t, bob.call(map[string]any{
		"type": "send_signal", "sender": "bob", "target": "alice", "sessionToken": sessionToken,
		"signal": map[string]any{"type": "answer", "sdp": "v=0"},
	}), "BAD_INPUT")

	// chat
	wantStatus(t, alice.call(map[string]any{"type": "message", "sender": "alice", "token": aliceCred, "sessionToken": sessionToken, "message": "hi"}), "OK")
	wantStatus(t, bob.call(map[string]any{"type": "message", "sender": "bob", "token": bobCred, "sessionToken": sessionToken, "message": "secret", "receiver": "alice"}), "OK")
	bob.push("message", func(m map[string]any) bool { return m["message"] == "hi" })
	dm := alice.push("message", func(m map[string]any) bool { return m["message"] == "secret" })
	if dm["directed"] != true {
		t.Fatalf("directed flag = %v", dm["directed"])
	}

	// only the creator terminates
	wantStatus(t, bob.call(map[string]any{"type": "terminate", "uid": "bob", "token": bobCred, "sessionToken": sessionToken}), "UNAUTHORIZED")

	// disconnect synthesizes a leave
	_ = bob.conn.Close()
	alice.push("left", func(m map[string]any) bool { return m["uid"] == "bob" })

	base := ts.srv.URL + "/api/sessions"
	code, info := postJSON(t, base+"/info", map[string]any{"token": aliceCred, "sessionToken": sessionToken})
	if code != http.StatusOK {
		t.Fatalf("info = %d %v", code, info)
	}
	if chats := info["chats"].([]any); len(chats) != 2 {
		t.Fatalf("owner chat log has %d lines", len(chats))
	}
	if att := info["attendees"].([]any); len(att) != 2 {
		t.Fatalf("attendees = %v", att)
	}
	if code, _ := postJSON(t, base+"/info", map[string]any{"token": bobCred, "sessionToken": sessionToken}); code != http.StatusUnauthorized {
		t.Fatalf("non-owner info = %d", code)
	}
	code, mine := postJSON(t, base+"/mine", map[string]any{"token": aliceCred})
	if code != http.StatusOK || len(mine["sessionIds"].([]any)) != 1 {
		t.Fatalf("mine = %d %v", code, mine)
	}

	wantStatus(t, alice.call(map[string]any{"type": "terminate", "uid": "alice", "token": aliceCred, "sessionToken": sessionToken}), "OK")
	alice.push("terminated", nil)
	wantStatus(t, alice.call(map[string]any{"type": "terminate", "uid": "alice", "token": aliceCred, "sessionToken": sessionToken}), "NOT_FOUND")

	code, info = postJSON(t, base+"/info", map[string]any{"token": aliceCred, "sessionId": 1})
	if code != http.StatusOK || info["summary"].(map[string]any)["sessionDuration"].(float64) < 0 {
		t.Fatalf("ended summary = %d %v", code, info)
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz = %d", resp.StatusCode)
	}
}

func TestPreflightAllowsAnyOriginByDefault(t *testing.T) {
	ts := newTestServer(t)
	req, err := http.NewRequest(http.MethodOptions, ts.srv.URL+"/api/sessions/mine", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("preflight = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("allow origin = %q", got)
	}
}

func TestCORSConfigRestrictsListedOrigins(t *testing.T) {
	c := corsConfig([]string{"https://app.example"})
	if c.AllowAllOrigins || !c.AllowCredentials {
		t.Fatalf("listed origins must not allow all: %+v", c)
	}
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
	if !corsConfig(nil).AllowAllOrigins {
		t.Fatal("empty list allows any origin")
	}
}
