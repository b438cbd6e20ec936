package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"franchise-quiz-service/internal/app"
	"franchise-quiz-service/internal/domain"
	"franchise-quiz-service/internal/infra/memory"
	"franchise-quiz-service/internal/scoring"
)

func newTestService() *app.GameService {
	catalog := memory.NewCatalogRepository(memory.NewStaticQuizLoader(sampleQuizzes()), time.Minute)
	return app.NewGameService(
		memory.NewSessionStore(),
		catalog,
		scoring.NewScorer(scoring.DefaultConfig()),
		scoring.NewRuleTable(1, scoring.DefaultRules()),
		scoring.DefaultLevels(),
		memory.NewLedgerStore(),
		memory.NewLeaderboardStore(),
	)
}

func TestWebSocketAnswerFlow(t *testing.T) {
	wsHandler := NewWSHandler(newTestService())

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws?sessionId=sess-1&quizId=quiz-1&playerId=p1&name=Alice"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Expect joined event first.
	msgType, payload := readNext(conn, t, "joined")
	if msgType != "joined" {
		t.Fatalf("expected joined, got %s", msgType)
	}
	if payload == nil {
		t.Fatalf("expected joined payload, got nil")
	}

	// Send an answer.
	answer := map[string]any{
		"type": "answer",
		"payload": map[string]any{
			"questionId":       "q1",
			"optionId":         "o2",
			"timeTakenSeconds": 2.5,
		},
	}
	if err := conn.WriteJSON(answer); err != nil {
		t.Fatalf("write answer: %v", err)
	}

	// Expect answerResult then leaderboard.
	var awarded float64
	answerSeen := false
	leaderboardSeen := false
	for i := 0; i < 3; i++ {
		typ, p := readNext(conn, t, "")
		switch typ {
		case "answerResult":
			answerSeen = true
			if correct, _ := p["correct"].(bool); !correct {
				t.Fatalf("expected correct answer result, got %+v", p)
			}
			awarded, _ = p["awarded"].(float64)
		case "leaderboard":
			leaderboardSeen = true
		}
		if answerSeen && leaderboardSeen {
			break
		}
	}
	if !answerSeen || !leaderboardSeen {
		t.Fatalf("expected answerResult and leaderboard, got answerResult=%v leaderboard=%v", answerSeen, leaderboardSeen)
	}
	if awarded <= 0 {
		t.Fatalf("expected positive score for a correct answer, got %v", awarded)
	}
}

func TestWebSocketRejectsDuplicateAnswer(t *testing.T) {
	wsHandler := NewWSHandler(newTestService())

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws?sessionId=sess-1&quizId=quiz-1&playerId=p1&name=Alice"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	readNext(conn, t, "joined")

	answer := map[string]any{
		"type": "answer",
		"payload": map[string]any{
			"questionId": "q1",
			"optionId":   "o2",
		},
	}
	for i := 0; i < 2; i++ {
		if err := conn.WriteJSON(answer); err != nil {
			t.Fatalf("write answer %d: %v", i, err)
		}
	}

	errorSeen := false
	for i := 0; i < 5 && !errorSeen; i++ {
		typ, _ := readNext(conn, t, "")
		if typ == "error" {
			errorSeen = true
		}
	}
	if !errorSeen {
		t.Fatal("expected an error for the duplicate answer")
	}
}

func TestWebSocketRequiresIdentity(t *testing.T) {
	wsHandler := NewWSHandler(newTestService())
	server := httptest.NewServer(http.HandlerFunc(wsHandler.ServeWS))
	defer server.Close()

	resp, err := http.Get(server.URL + "?sessionId=sess-1&quizId=quiz-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing identity params, got %d", resp.StatusCode)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}

func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:          "quiz-1",
			FranchiseID: "fr-1",
			Type:        domain.QuizTypeLocal,
			Category:    "menu",
			Questions: []domain.Question{
				{
					ID:         "q1",
					Prompt:     "Which bun is used for the classic burger?",
					Difficulty: domain.DifficultyEasy,
					Options: []domain.Option{
						{ID: "o1", Text: "Sesame", Correct: false},
						{ID: "o2", Text: "Brioche", Correct: true},
						{ID: "o3", Text: "Potato", Correct: false},
					},
					TimeLimitSeconds: 30,
					MaxScore:         50,
				},
			},
		},
	}
}
