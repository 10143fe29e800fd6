package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/esacantik/storefront-go/internal/metrics"
	"github.com/esacantik/storefront-go/internal/models"
	"github.com/esacantik/storefront-go/pkg/config"
)

// AssistantGreeting seeds every new transcript as the first model turn.
const AssistantGreeting = "Halo Cantik! Selamat datang di ESA CANTIK. Saya asisten kecantikan pribadi Anda. Ada yang bisa saya bantu hari ini? Ingin rekomendasi produk atau tips perawatan kulit?"

// AssistantFallback is appended as the model turn when a request fails.
const AssistantFallback = "Maaf Cantik, ada sedikit gangguan teknis. Bisa Anda ulangi pertanyaannya?"

// assistantPersona is the system instruction establishing tone and domain
// scope. It is not part of the transcript.
const assistantPersona = `Anda adalah 'Esa Beauty Expert', asisten virtual untuk toko online kecantikan 'ESA CANTIK'.
Tugas Anda:
1. Memberikan saran kecantikan profesional (skincare, makeup, fragrance, hair care).
2. Gunakan gaya bahasa yang ramah, sopan, dan elegan. Sering-seringlah memanggil pengguna dengan sebutan 'Cantik', 'Kakak', atau 'Sista'.
3. Rekomendasikan produk berdasarkan katalog ESA CANTIK (Skincare, Makeup, Fragrance, Haircare).
4. Berikan tips kecantikan yang edukatif dan praktis.
5. Jika ditanya harga, informasikan bahwa detail lengkap ada di katalog kami.`

// Generator produces one reply for a fully built prompt. The Gemini client
// is the production implementation; tests substitute their own.
type Generator interface {
	GenerateReply(ctx context.Context, prompt string) (string, error)
}

type chatSession struct {
	messages []models.Message
	pending  bool
}

// AssistantService maintains one conversational session per session ID,
// forwarding user turns to Gemini and appending replies to the transcript.
// A nil generator means no credential was configured at startup; the
// assistant is then inert and SendMessage is a safe no-op.
type AssistantService struct {
	generator Generator
	metrics   *metrics.AppMetrics
	model     string

	mu       sync.Mutex
	sessions map[string]*chatSession
}

// NewAssistantService creates the assistant backed by the Gemini API. A
// missing credential degrades the assistant to a no-op instead of failing
// the application.
func NewAssistantService(cfg *config.Config, m *metrics.AppMetrics) *AssistantService {
	s := &AssistantService{
		metrics:  m,
		model:    cfg.GeminiModel,
		sessions: make(map[string]*chatSession),
	}

	if !cfg.AssistantEnabled() {
		log.Printf("GEMINI_API_KEY not set, assistant disabled")
		return s
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		log.Printf("Failed to create Gemini client, assistant disabled: %v", err)
		return s
	}

	s.generator = &geminiGenerator{
		client:          client,
		model:           cfg.GeminiModel,
		temperature:     cfg.GeminiTemperature,
		maxOutputTokens: cfg.GeminiMaxOutputTokens,
	}
	log.Printf("Assistant enabled: model=%s", cfg.GeminiModel)
	return s
}

// NewAssistantServiceWithGenerator creates the assistant over a caller
// supplied generator. Used by tests.
func NewAssistantServiceWithGenerator(gen Generator, model string, m *metrics.AppMetrics) *AssistantService {
	return &AssistantService{
		generator: gen,
		metrics:   m,
		model:     model,
		sessions:  make(map[string]*chatSession),
	}
}

// Enabled reports whether the assistant has a working backend
func (s *AssistantService) Enabled() bool {
	return s.generator != nil
}

// session returns the session for the ID, creating and seeding it with the
// greeting on first use. Caller must hold s.mu.
func (s *AssistantService) session(sessionID string) *chatSession {
	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &chatSession{
			messages: []models.Message{{Role: "model", Text: AssistantGreeting}},
		}
		s.sessions[sessionID] = sess
	}
	return sess
}

// Transcript returns the current transcript and session flags
func (s *AssistantService) Transcript(sessionID string) *models.ChatResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(sessionID, s.session(sessionID))
}

// snapshot copies the session into a response. Caller must hold s.mu.
func (s *AssistantService) snapshot(sessionID string, sess *chatSession) *models.ChatResponse {
	messages := make([]models.Message, len(sess.messages))
	copy(messages, sess.messages)
	return &models.ChatResponse{
		SessionID: sessionID,
		Enabled:   s.generator != nil,
		Pending:   sess.pending,
		Messages:  messages,
	}
}

// SendMessage forwards one user turn to the assistant. The user message is
// appended to the transcript immediately; the reply (or the fixed fallback
// on failure) is appended when the request finishes. Only one request may be
// in flight per session: a second send while one is pending is rejected and
// appends nothing.
func (s *AssistantService) SendMessage(ctx context.Context, sessionID, text string) (*models.ChatResponse, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("message is empty")
	}

	if s.generator == nil {
		// No credential at startup: safe no-op, no message appended.
		return s.Transcript(sessionID), nil
	}

	s.mu.Lock()
	sess := s.session(sessionID)
	if sess.pending {
		s.mu.Unlock()
		return nil, fmt.Errorf("assistant reply still pending")
	}
	sess.messages = append(sess.messages, models.Message{Role: "user", Text: text})
	sess.pending = true
	prompt := buildPrompt(sess.messages[:len(sess.messages)-1], text)
	s.mu.Unlock()

	// The request runs outside the lock so cart and catalog traffic is never
	// blocked behind a slow reply.
	start := time.Now()
	reply, err := s.generator.GenerateReply(ctx, prompt)
	s.metrics.RecordChatRequest(ctx, s.model, start, err == nil)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		log.Printf("Assistant request failed: session_id=%s: %v", sessionID, err)
		sess.messages = append(sess.messages, models.Message{Role: "model", Text: AssistantFallback})
	} else {
		sess.messages = append(sess.messages, models.Message{Role: "model", Text: reply})
	}
	sess.pending = false

	return s.snapshot(sessionID, sess), nil
}

// buildPrompt assembles persona, numbered history and the current user turn
// into a single prompt string.
func buildPrompt(history []models.Message, userMessage string) string {
	var b strings.Builder
	b.WriteString(assistantPersona)
	b.WriteString("\n\n# CONVERSATION HISTORY:\n")
	if len(history) == 0 {
		b.WriteString("No previous messages\n")
	}
	for i, msg := range history {
		b.WriteString(fmt.Sprintf("%d. %s: %s\n", i+1, msg.Role, msg.Text))
	}
	b.WriteString("\nCurrent user message: ")
	b.WriteString(userMessage)
	return b.String()
}

// geminiGenerator calls the Gemini API for one text reply
type geminiGenerator struct {
	client          *genai.Client
	model           string
	temperature     float32
	maxOutputTokens int
}

func (g *geminiGenerator) GenerateReply(ctx context.Context, prompt string) (string, error) {
	temp := g.temperature
	generateConfig := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: int32(g.maxOutputTokens),
	}

	resp, err := g.client.Models.GenerateContent(
		ctx,
		g.model,
		genai.Text(prompt),
		generateConfig,
	)
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	if resp == nil {
		return "", fmt.Errorf("Gemini returned nil response")
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in Gemini response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in Gemini response")
	}

	responseText := ""
	for _, part := range candidate.Content.Parts {
		if part.Text != "" {
			responseText += part.Text
		}
	}

	responseText = strings.TrimSpace(responseText)
	if responseText == "" {
		return "", fmt.Errorf("empty response text from Gemini")
	}

	return responseText, nil
}
