package oracle

import (
	"context"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/nidhogg/mnemo/internal/provider"
	"github.com/nidhogg/mnemo/internal/relation"
	"go.uber.org/zap"
)

const (
	// maxPayloadChars bounds the text sent per extraction call. Extraction is
	// best-effort over this window, not guaranteed-complete for long batches.
	maxPayloadChars = 8000

	extractionTemperature = 0.1
	extractionMaxTokens   = 2000
)

// Completer is the completion surface the adapter needs. *provider.Router
// satisfies it.
type Completer interface {
	Complete(ctx context.Context, req *provider.CompletionRequest) (*provider.CompletionResponse, error)
}

// MemoryExtraction is one validated memory-style fact from the oracle.
type MemoryExtraction struct {
	Type       string   `json:"type"`
	Content    string   `json:"content"`
	Importance float64  `json:"importance"`
	Tags       []string `json:"tags"`
}

type memoryEnvelope struct {
	Extractions []MemoryExtraction `json:"extractions"`
}

// validMemoryTypes is the closed set a memory may carry; anything else from
// the oracle is dropped.
var validMemoryTypes = map[string]bool{
	"decision":     true,
	"learning":     true,
	"preference":   true,
	"context":      true,
	"relationship": true,
}

type relationEnvelope struct {
	Relations []relation.Candidate `json:"relations"`
}

// Adapter wraps the LLM completion service with the extraction prompt
// contract. Transport failures surface as errors; unparseable responses do
// not, since the caller treats "nothing extractable" and "garbage response"
// identically.
type Adapter struct {
	llm    Completer
	logger *zap.Logger
}

// NewAdapter creates an extraction oracle adapter.
func NewAdapter(llm Completer, logger *zap.Logger) *Adapter {
	return &Adapter{llm: llm, logger: logger}
}

// ExtractMemories asks the oracle for memory-style facts in the given text.
// Importance is clamped into [0,1] and missing tags default to empty.
func (a *Adapter) ExtractMemories(ctx context.Context, text string) ([]MemoryExtraction, error) {
	resp, err := a.llm.Complete(ctx, &provider.CompletionRequest{
		System:      memorySystemPrompt,
		Prompt:      truncate(text, maxPayloadChars),
		Temperature: extractionTemperature,
		MaxTokens:   extractionMaxTokens,
		JSONOnly:    true,
	})
	if err != nil {
		return nil, err
	}
	return parseMemories(resp.Content, a.logger), nil
}

// ExtractRelations asks the oracle for entity relationships in the given
// text. Items with an empty endpoint or a relation type outside the closed
// enumeration are dropped without retry.
func (a *Adapter) ExtractRelations(ctx context.Context, text string) ([]relation.Candidate, error) {
	resp, err := a.llm.Complete(ctx, &provider.CompletionRequest{
		System:      relationSystemPrompt,
		Prompt:      truncate(text, maxPayloadChars),
		Temperature: extractionTemperature,
		MaxTokens:   extractionMaxTokens,
		JSONOnly:    true,
	})
	if err != nil {
		return nil, err
	}
	return parseRelations(resp.Content, a.logger), nil
}

// parseMemories parses the oracle response fail-open: malformed JSON or a
// missing top-level array yields an empty result, never an error.
func parseMemories(raw string, logger *zap.Logger) []MemoryExtraction {
	var env memoryEnvelope
	if err := json.Unmarshal([]byte(stripFences(raw)), &env); err != nil {
		logger.Debug("unparseable memory extraction response", zap.Error(err))
		return nil
	}

	valid := make([]MemoryExtraction, 0, len(env.Extractions))
	for _, e := range env.Extractions {
		if strings.TrimSpace(e.Content) == "" {
			continue
		}
		if e.Type == "" {
			e.Type = "context"
		}
		if !validMemoryTypes[e.Type] {
			logger.Debug("dropping memory with unknown type", zap.String("type", e.Type))
			continue
		}
		if e.Importance < 0 {
			e.Importance = 0
		}
		if e.Importance > 1 {
			e.Importance = 1
		}
		if e.Tags == nil {
			e.Tags = []string{}
		}
		valid = append(valid, e)
	}
	return valid
}

// parseRelations parses the oracle response fail-open and enforces the closed
// relation-type enumeration per item.
func parseRelations(raw string, logger *zap.Logger) []relation.Candidate {
	var env relationEnvelope
	if err := json.Unmarshal([]byte(stripFences(raw)), &env); err != nil {
		logger.Debug("unparseable relation extraction response", zap.Error(err))
		return nil
	}

	valid := make([]relation.Candidate, 0, len(env.Relations))
	for _, r := range env.Relations {
		if strings.TrimSpace(r.Source) == "" || strings.TrimSpace(r.Target) == "" {
			continue
		}
		if !r.Type.Valid() {
			logger.Debug("dropping relation with unknown type",
				zap.String("type", string(r.Type)),
				zap.String("source", r.Source))
			continue
		}
		valid = append(valid, r)
	}
	return valid
}

// stripFences removes a markdown code-fence wrapper some models insist on.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// truncate cuts s to at most limit bytes without splitting a UTF-8 rune.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
