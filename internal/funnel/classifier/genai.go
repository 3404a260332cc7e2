package classifier

import (
	"context"
	"fmt"
	"strings"

	"despacho_backend/platform/config"
	"despacho_backend/platform/logger"

	"google.golang.org/genai"
)

const geminiPrompt = `Eres el asistente de un despacho contable. Clasifica el mensaje de un prospecto.

Palabras clave esperadas: %s
Mensaje del prospecto: %q

Responde con UNA sola línea:
- "MATCH" si el mensaje confirma alguna de las palabras clave esperadas.
- "OFF_TOPIC|<respuesta breve>" si el mensaje pregunta por precio o ubicación; incluye una respuesta corta y cordial en español.
- "NO_MATCH" en cualquier otro caso.`

// Gemini classifies replies with Google's Gemini API, falling back to the
// keyword matcher when the call fails or returns something unparseable. A
// lost verdict must never stall a prospect.
type Gemini struct {
	client   *genai.Client
	model    string
	fallback *Keyword
	log      *logger.Logger
}

// NewGemini creates the LLM-backed classifier.
func NewGemini(ctx context.Context, cfg config.ClassifierConfig, log *logger.Logger) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.GetGeminiAPIKey(),
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Gemini{
		client:   client,
		model:    cfg.GetGeminiModel(),
		fallback: NewKeyword(),
		log:      log,
	}, nil
}

// Classify asks Gemini for a verdict.
func (g *Gemini) Classify(ctx context.Context, text string, keywords []string) (Result, error) {
	prompt := fmt.Sprintf(geminiPrompt, strings.Join(keywords, ", "), text)

	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		genai.Text(prompt), nil)
	if err != nil {
		g.log.Warn("gemini_classify_failed", "error", err.Error())
		return g.fallback.Classify(ctx, text, keywords)
	}

	result, ok := parseVerdict(resp.Text())
	if !ok {
		g.log.Warn("gemini_classify_unparseable", "raw", resp.Text())
		return g.fallback.Classify(ctx, text, keywords)
	}
	return result, nil
}

func parseVerdict(raw string) (Result, bool) {
	line := strings.TrimSpace(raw)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}

	switch {
	case strings.EqualFold(line, string(Match)):
		return Result{Verdict: Match}, true
	case strings.EqualFold(line, string(NoMatch)):
		return Result{Verdict: NoMatch}, true
	case strings.HasPrefix(strings.ToUpper(line), "OFF_TOPIC"):
		reply := ""
		if i := strings.IndexByte(line, '|'); i >= 0 {
			reply = strings.TrimSpace(line[i+1:])
		}
		return Result{Verdict: OffTopicRecognized, Reply: reply}, true
	}
	return Result{}, false
}
