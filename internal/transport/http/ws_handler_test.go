package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	goredis "github.com/redis/go-redis/v9"
	"trivia-live-service/internal/app"
	"trivia-live-service/internal/catalog"
	"trivia-live-service/internal/domain"
	"trivia-live-service/internal/infra/memory"
	infraredis "trivia-live-service/internal/infra/redis"
	"trivia-live-service/internal/ranking"
)

func newTestServer(t *testing.T, idleNotice bool) *httptest.Server {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	stateStore := infraredis.NewStateStore(client, time.Hour)

	questions := catalog.New(catalog.NewStaticLoader([]domain.Question{
		{
			ID:     1,
			Prompt: "Pick B",
			Options: []domain.Option{
				{Key: "A", Text: "wrong"},
				{Key: "B", Text: "right"},
			},
			Correct: "B",
		},
	}), time.Minute)

	hub := NewHub()
	service := app.NewGameService(stateStore, stateStore, memory.NewResponseStore(), questions, ranking.NewEngine(20000), hub)
	handler := NewWSHandler(service, hub, idleNotice)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", handler.ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readNext(t *testing.T, conn *websocket.Conn) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	return msg.Type, msg.Payload
}

// readUntil drains messages until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, want string) map[string]any {
	t.Helper()
	for i := 0; i < 10; i++ {
		typ, payload := readNext(t, conn)
		if typ == want {
			return payload
		}
	}
	t.Fatalf("never received %q", want)
	return nil
}

func TestActivateBroadcastAndAck(t *testing.T) {
	server := newTestServer(t, false)
	admin := dial(t, server)

	if err := admin.WriteJSON(map[string]any{
		"type":    "activate",
		"payload": map[string]any{"questionId": 1, "timeLimitMs": 20000},
	}); err != nil {
		t.Fatalf("write activate: %v", err)
	}

	statusSeen := false
	ackSeen := false
	for i := 0; i < 3 && !(statusSeen && ackSeen); i++ {
		typ, payload := readNext(t, admin)
		switch typ {
		case "estadoJuego":
			statusSeen = true
			if payload["status"] != string(domain.StatusAwaitingAnswers) {
				t.Fatalf("unexpected status payload %+v", payload)
			}
			question, _ := payload["question"].(map[string]any)
			if question == nil || question["correct"] != nil {
				t.Fatalf("broadcast question must be answer-stripped, got %+v", question)
			}
		case "ack":
			ackSeen = true
		}
	}
	if !statusSeen || !ackSeen {
		t.Fatalf("expected broadcast and ack, got status=%v ack=%v", statusSeen, ackSeen)
	}
}

func TestLateJoinReceivesQuestionFirst(t *testing.T) {
	server := newTestServer(t, false)
	admin := dial(t, server)

	if err := admin.WriteJSON(map[string]any{
		"type":    "activate",
		"payload": map[string]any{"questionId": 1, "timeLimitMs": 20000},
	}); err != nil {
		t.Fatalf("write activate: %v", err)
	}
	readUntil(t, admin, "ack")

	late := dial(t, server)
	typ, payload := readNext(t, late)
	if typ != "estadoJuego" {
		t.Fatalf("late joiner must receive round state first, got %q", typ)
	}
	question, _ := payload["question"].(map[string]any)
	if question == nil || question["id"] != float64(1) {
		t.Fatalf("expected active question replay, got %+v", payload)
	}
}

func TestSubmitAckAndRejection(t *testing.T) {
	server := newTestServer(t, false)
	admin := dial(t, server)
	player := dial(t, server)

	// vote before any round is active
	if err := player.WriteJSON(map[string]any{
		"type": "submit",
		"payload": map[string]any{
			"identity": "d1", "displayName": "Ana", "questionId": 1, "chosenOption": "B",
		},
	}); err != nil {
		t.Fatalf("write submit: %v", err)
	}
	if payload := readUntil(t, player, "error"); payload["message"] != domain.ErrNoActiveRound.Error() {
		t.Fatalf("expected no-active-round rejection, got %+v", payload)
	}

	if err := admin.WriteJSON(map[string]any{
		"type":    "activate",
		"payload": map[string]any{"questionId": 1, "timeLimitMs": 20000},
	}); err != nil {
		t.Fatalf("write activate: %v", err)
	}
	readUntil(t, admin, "ack")
	readUntil(t, player, "estadoJuego")

	if err := player.WriteJSON(map[string]any{
		"type": "submit",
		"payload": map[string]any{
			"identity": "d1", "displayName": "Ana", "questionId": 1, "chosenOption": "B", "clientTimestamp": 123,
		},
	}); err != nil {
		t.Fatalf("write submit: %v", err)
	}
	readUntil(t, player, "respuestaOk")
}

func TestIdleNoticeOnConnect(t *testing.T) {
	server := newTestServer(t, true)
	conn := dial(t, server)

	typ, payload := readNext(t, conn)
	if typ != "estadoJuego" || payload["status"] != string(domain.StatusIdle) {
		t.Fatalf("expected explicit idle notice, got %q %+v", typ, payload)
	}
}

func TestUnsupportedMessageType(t *testing.T) {
	server := newTestServer(t, false)
	conn := dial(t, server)

	if err := conn.WriteJSON(map[string]any{"type": "nonsense"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	readUntil(t, conn, "error")
}
