package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"NewsRelay/internal/config"
)

func TestNotifyPostsForm(t *testing.T) {
	t.Parallel()

	var gotPath, gotChat, gotText string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotChat = r.PostForm.Get("chat_id")
		gotText = r.PostForm.Get("text")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewNotifier(config.TelegramConfig{BotToken: "123:abc", ChatID: "-100", APIURL: srv.URL + "/"})
	if err := n.Notify(context.Background(), "login challenge for newsdesk"); err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}
	if gotPath != "/bot123:abc/sendMessage" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotChat != "-100" || gotText != "login challenge for newsdesk" {
		t.Fatalf("unexpected form chat=%q text=%q", gotChat, gotText)
	}
}

func TestNotifyTruncatesAndReportsErrors(t *testing.T) {
	t.Parallel()

	var gotLen int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		gotLen = len([]rune(r.PostForm.Get("text")))
		http.Error(w, `{"ok":false,"description":"chat not found"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	n := NewNotifier(config.TelegramConfig{BotToken: "t", ChatID: "c", APIURL: srv.URL})
	err := n.Notify(context.Background(), strings.Repeat("x", 5000))
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("expected telegram error, got %v", err)
	}
	if gotLen != maxMessage {
		t.Fatalf("message length = %d, want %d", gotLen, maxMessage)
	}

	if NewNotifier(config.TelegramConfig{}).Enabled() {
		t.Fatal("notifier without token must be disabled")
	}
	if err := NewNotifier(config.TelegramConfig{}).Notify(context.Background(), "x"); err == nil {
		t.Fatal("expected misconfiguration error")
	}
}
