package voicecmd_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/visionaid/go-visionaid/pkg/voicecmd"
)

func TestHandlerSceneDescription(t *testing.T) {
	h := &voicecmd.Handler{
		DescribeScene: func() string { return "person ahead, chair to the left" },
	}

	for _, cmd := range []string{"what's around me", "Describe the scene", "what do you see"} {
		if got := h.Handle(cmd); got != "person ahead, chair to the left" {
			t.Errorf("Handle(%q) = %q", cmd, got)
		}
	}
}

func TestHandlerStatusAndHelp(t *testing.T) {
	h := &voicecmd.Handler{
		SystemStatus: func() string { return "everything is fine" },
	}
	if got := h.Handle("system status"); got != "everything is fine" {
		t.Fatalf("status = %q", got)
	}
	if got := h.Handle("help"); !strings.Contains(got, "around me") {
		t.Fatalf("help = %q", got)
	}
	if got := h.Handle("make me a sandwich"); !strings.Contains(got, "didn't catch") {
		t.Fatalf("fallback = %q", got)
	}
	if got := h.Handle("   "); got != "" {
		t.Fatalf("empty transcript should yield no response, got %q", got)
	}
}

type spokenLog struct {
	mu     sync.Mutex
	spoken []string
	logged [][2]string
}

func (s *spokenLog) SayNow(ctx context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spoken = append(s.spoken, text)
	return nil
}

func (s *spokenLog) LogVoiceCommand(ctx context.Context, command, response string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logged = append(s.logged, [2]string{command, response})
	return nil
}

func TestTaskSpeaksAndLogsResponses(t *testing.T) {
	rec := voicecmd.NewMockRecognizer("what's around me")
	h := &voicecmd.Handler{DescribeScene: func() string { return "nothing nearby" }}
	out := &spokenLog{}
	task := voicecmd.NewTask(rec, h, out, out)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go task.Run(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for {
		out.mu.Lock()
		done := len(out.spoken) == 1 && len(out.logged) == 1
		out.mu.Unlock()
		if done {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("task never processed the command")
		}
		time.Sleep(10 * time.Millisecond)
	}

	out.mu.Lock()
	defer out.mu.Unlock()
	if out.spoken[0] != "nothing nearby" {
		t.Fatalf("spoke %q", out.spoken[0])
	}
	if out.logged[0] != [2]string{"what's around me", "nothing nearby"} {
		t.Fatalf("logged %v", out.logged[0])
	}
}

func TestWSRecognizerReadsFinalTranscript(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		conn.WriteJSON(map[string]interface{}{"type": "transcript", "text": "what's up", "is_final": false})
		conn.WriteJSON(map[string]interface{}{"type": "transcript", "text": "what's around me", "is_final": true})
		// Hold the connection until the client disconnects.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	rec := voicecmd.NewWSRecognizer(url, "test-key")
	defer rec.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	text, err := rec.Recognize(ctx)
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if text != "what's around me" {
		t.Fatalf("transcript = %q; interim results must be skipped", text)
	}
}

func TestWSRecognizerHonorsContext(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		// Never send anything.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	rec := voicecmd.NewWSRecognizer(url, "")
	defer rec.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := rec.Recognize(ctx); err == nil {
		t.Fatal("expected context error")
	}
}
