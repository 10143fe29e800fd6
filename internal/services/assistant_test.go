package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
)

// fakeGenerator is a test double for the Gemini backend
type fakeGenerator struct {
	reply   string
	err     error
	release chan struct{} // when non-nil, GenerateReply blocks until closed

	prompts []string
}

func (f *fakeGenerator) GenerateReply(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func newTestAssistant(t *testing.T, gen Generator) *AssistantService {
	t.Helper()
	return NewAssistantServiceWithGenerator(gen, "test-model", newTestMetrics(t))
}

func TestTranscriptSeededWithGreeting(t *testing.T) {
	svc := newTestAssistant(t, &fakeGenerator{reply: "ok"})

	resp := svc.Transcript("s1")
	if !resp.Enabled {
		t.Error("expected assistant enabled")
	}
	if resp.Pending {
		t.Error("expected no pending request")
	}
	if len(resp.Messages) != 1 {
		t.Fatalf("expected seeded transcript, got %d messages", len(resp.Messages))
	}
	if resp.Messages[0].Role != "model" || resp.Messages[0].Text != AssistantGreeting {
		t.Errorf("unexpected greeting: %+v", resp.Messages[0])
	}
}

func TestSendMessageSuccess(t *testing.T) {
	gen := &fakeGenerator{reply: "Tentu, Cantik! Coba Glow Radiance Serum."}
	svc := newTestAssistant(t, gen)

	resp, err := svc.SendMessage(context.Background(), "s1", "rekomendasi skincare")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Pending {
		t.Error("expected pending cleared after success")
	}
	// greeting, user turn, model reply
	if len(resp.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(resp.Messages))
	}
	if resp.Messages[1].Role != "user" || resp.Messages[1].Text != "rekomendasi skincare" {
		t.Errorf("unexpected user turn: %+v", resp.Messages[1])
	}
	if resp.Messages[2].Role != "model" || resp.Messages[2].Text != gen.reply {
		t.Errorf("unexpected model turn: %+v", resp.Messages[2])
	}

	if len(gen.prompts) != 1 {
		t.Fatalf("expected one backend call, got %d", len(gen.prompts))
	}
	prompt := gen.prompts[0]
	if !strings.Contains(prompt, "Esa Beauty Expert") {
		t.Error("prompt missing persona instruction")
	}
	if !strings.Contains(prompt, AssistantGreeting) {
		t.Error("prompt missing conversation history")
	}
	if !strings.Contains(prompt, "Current user message: rekomendasi skincare") {
		t.Error("prompt missing current user message")
	}
}

func TestSendMessageFailureAppendsFallback(t *testing.T) {
	svc := newTestAssistant(t, &fakeGenerator{err: fmt.Errorf("Gemini API error: 503")})

	resp, err := svc.SendMessage(context.Background(), "s1", "halo")
	if err != nil {
		t.Fatalf("expected local recovery, got error: %v", err)
	}

	if resp.Pending {
		t.Error("expected pending cleared after failure")
	}
	if len(resp.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(resp.Messages))
	}
	if resp.Messages[2].Role != "model" || resp.Messages[2].Text != AssistantFallback {
		t.Errorf("expected fallback message, got %+v", resp.Messages[2])
	}
}

func TestSendMessageRejectsBlankText(t *testing.T) {
	gen := &fakeGenerator{reply: "ok"}
	svc := newTestAssistant(t, gen)

	for _, text := range []string{"", "   ", "\n\t"} {
		if _, err := svc.SendMessage(context.Background(), "s1", text); err == nil {
			t.Errorf("expected error for blank text %q", text)
		}
	}
	if len(gen.prompts) != 0 {
		t.Errorf("backend called for blank text: %d calls", len(gen.prompts))
	}
}

func TestDisabledAssistantIsNoOp(t *testing.T) {
	svc := newTestAssistant(t, nil)

	if svc.Enabled() {
		t.Error("expected assistant disabled")
	}

	resp, err := svc.SendMessage(context.Background(), "s1", "halo")
	if err != nil {
		t.Fatalf("expected safe no-op, got error: %v", err)
	}
	if resp.Enabled {
		t.Error("expected enabled=false")
	}
	// No user message appended, greeting intact
	if len(resp.Messages) != 1 {
		t.Errorf("expected transcript unchanged, got %d messages", len(resp.Messages))
	}
}

func TestSingleFlight(t *testing.T) {
	gen := &fakeGenerator{reply: "ok", release: make(chan struct{})}
	svc := newTestAssistant(t, gen)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := svc.SendMessage(context.Background(), "s1", "pertama"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	}()

	// Wait until the first send is in flight
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if svc.Transcript("s1").Pending {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if !svc.Transcript("s1").Pending {
		t.Fatal("first send never became pending")
	}

	// A second send while one is pending is rejected and appends nothing
	_, err := svc.SendMessage(context.Background(), "s1", "kedua")
	if err == nil || err.Error() != "assistant reply still pending" {
		t.Fatalf("expected pending rejection, got %v", err)
	}

	transcript := svc.Transcript("s1")
	for _, msg := range transcript.Messages {
		if msg.Text == "kedua" {
			t.Error("rejected send appended a user message")
		}
	}

	close(gen.release)
	<-done

	transcript = svc.Transcript("s1")
	if transcript.Pending {
		t.Error("expected pending cleared after completion")
	}
	if len(transcript.Messages) != 3 {
		t.Errorf("expected 3 messages, got %d", len(transcript.Messages))
	}

	// The session accepts new sends again
	if _, err := svc.SendMessage(context.Background(), "s1", "ketiga"); err != nil {
		t.Errorf("unexpected error after completion: %v", err)
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	gen := &fakeGenerator{reply: "ok", release: make(chan struct{})}
	svc := newTestAssistant(t, gen)

	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.SendMessage(context.Background(), "s1", "halo")
	}()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && !svc.Transcript("s1").Pending {
		time.Sleep(time.Millisecond)
	}

	// Single-flight is per session, not global
	if svc.Transcript("s2").Pending {
		t.Error("s2 should not be pending")
	}

	close(gen.release)
	<-done
}
