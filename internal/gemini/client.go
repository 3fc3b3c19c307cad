package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"lumina/internal/logger"
	"lumina/internal/model"
)

// Client is the subset of the Gemini API the lesson feed consumes.
type Client interface {
	// GenerateLesson asks the text model for a micro-lesson about topic.
	GenerateLesson(ctx context.Context, topic string) (*model.LessonDraft, error)

	// GenerateSpeech reads text aloud and returns the inline base64 PCM payload.
	GenerateSpeech(ctx context.Context, text string) (string, error)
}

// Options configures the REST client. Empty fields take the defaults below.
type Options struct {
	APIKey      string
	BaseURL     string
	TextModel   string
	SpeechModel string
	Voice       string
	Timeout     time.Duration // zero means no client-side timeout
	HTTPClient  *http.Client
}

const (
	DefaultBaseURL     = "https://generativelanguage.googleapis.com"
	DefaultTextModel   = "gemini-2.5-flash"
	DefaultSpeechModel = "gemini-2.5-flash-preview-tts"
	DefaultVoice       = "Puck"
)

// HTTPError is returned for non-2xx responses.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("gemini http %d: %s", e.StatusCode, e.Body)
}

type client struct {
	log         *logger.Logger
	apiKey      string
	baseURL     string
	textModel   string
	speechModel string
	voice       string
	httpClient  *http.Client
}

// NewClient builds a REST client. A missing API key is not an error here:
// every call then fails with model.ErrMissingAPIKey so callers can degrade.
func NewClient(opts Options, log *logger.Logger) Client {
	if log == nil {
		log = logger.Nop()
	}
	c := &client{
		log:         log,
		apiKey:      strings.TrimSpace(opts.APIKey),
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		textModel:   opts.TextModel,
		speechModel: opts.SpeechModel,
		voice:       opts.Voice,
		httpClient:  opts.HTTPClient,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.textModel == "" {
		c.textModel = DefaultTextModel
	}
	if c.speechModel == "" {
		c.speechModel = DefaultSpeechModel
	}
	if c.voice == "" {
		c.voice = DefaultVoice
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: opts.Timeout}
	}
	if c.apiKey == "" {
		log.Error("GEMINI_API_KEY is missing; lesson and audio generation will fall back")
	}
	return c
}

// -------------------- wire types --------------------

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type schema struct {
	Type       string             `json:"type"`
	Properties map[string]*schema `json:"properties,omitempty"`
	Required   []string           `json:"required,omitempty"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoiceConfig `json:"prebuiltVoiceConfig"`
}

type speechConfig struct {
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

type generationConfig struct {
	ResponseMimeType   string        `json:"responseMimeType,omitempty"`
	ResponseSchema     *schema       `json:"responseSchema,omitempty"`
	ResponseModalities []string      `json:"responseModalities,omitempty"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content *content `json:"content"`
	} `json:"candidates"`
}

// firstPart returns the first part of the first candidate, or nil.
func (r *generateResponse) firstPart() *part {
	if len(r.Candidates) == 0 || r.Candidates[0].Content == nil || len(r.Candidates[0].Content.Parts) == 0 {
		return nil
	}
	return &r.Candidates[0].Content.Parts[0]
}

// text concatenates the text parts of the first candidate.
func (r *generateResponse) text() string {
	if len(r.Candidates) == 0 || r.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

// -------------------- operations --------------------

func lessonPrompt(topic string) string {
	return fmt.Sprintf(`Gere uma lição de micro-aprendizado sobre "%s". 
      Deve ser concisa, educativa e envolvente, escrita em Português do Brasil.
      Retorne o resultado em formato JSON com 'title' (título), 'summary' (resumo máx 20 palavras), 'fullContent' (conteúdo completo máx 80 palavras) e 'category' (categoria).`, topic)
}

func speechPrompt(text string) string {
	return "Leia este texto de forma clara, profissional e natural em Português: " + text
}

var lessonSchema = &schema{
	Type: "OBJECT",
	Properties: map[string]*schema{
		"title":       {Type: "STRING"},
		"summary":     {Type: "STRING"},
		"fullContent": {Type: "STRING"},
		"category":    {Type: "STRING"},
	},
	Required: []string{"title", "summary", "fullContent", "category"},
}

func (c *client) GenerateLesson(ctx context.Context, topic string) (*model.LessonDraft, error) {
	req := generateRequest{
		Contents: []content{{Parts: []part{{Text: lessonPrompt(topic)}}}},
		GenerationConfig: &generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   lessonSchema,
		},
	}

	var resp generateResponse
	if err := c.generate(ctx, c.textModel, req, &resp); err != nil {
		return nil, err
	}

	raw := resp.text()
	if strings.TrimSpace(raw) == "" {
		return nil, model.ErrEmptyResponse
	}

	var draft model.LessonDraft
	if err := json.Unmarshal([]byte(raw), &draft); err != nil {
		return nil, fmt.Errorf("gemini: decode lesson json: %w", err)
	}
	return &draft, nil
}

func (c *client) GenerateSpeech(ctx context.Context, text string) (string, error) {
	req := generateRequest{
		Contents: []content{{Parts: []part{{Text: speechPrompt(text)}}}},
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &speechConfig{
				VoiceConfig: voiceConfig{PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: c.voice}},
			},
		},
	}

	var resp generateResponse
	if err := c.generate(ctx, c.speechModel, req, &resp); err != nil {
		return "", err
	}

	p := resp.firstPart()
	if p == nil || p.InlineData == nil || p.InlineData.Data == "" {
		return "", model.ErrEmptyResponse
	}
	return p.InlineData.Data, nil
}

// generate performs exactly one generateContent call. There are no retries.
func (c *client) generate(ctx context.Context, modelName string, body generateRequest, out *generateResponse) error {
	if c.apiKey == "" {
		return model.ErrMissingAPIKey
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return fmt.Errorf("gemini: encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, url.PathEscape(modelName))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return fmt.Errorf("gemini: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gemini: request: %w", err)
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return fmt.Errorf("gemini: read response: %w", readErr)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("gemini: decode response: %w", err)
	}

	c.log.Debug("[Gemini] generateContent OK", "model", modelName, "bytes", len(raw), "duration", time.Since(startTime))
	return nil
}
