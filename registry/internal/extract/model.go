// CLAUDE:SUMMARY Model-driven extraction: bounded prompt, JSON-in-prose recovery.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hazyhaar/fieldreg/genai"
	"github.com/hazyhaar/fieldreg/registry/internal/store"
)

// maxPromptContent caps how much source text goes into the prompt.
const maxPromptContent = 8000

// ModelExtractor asks a hosted generation service for structured offices.
type ModelExtractor struct {
	gen genai.Generator
}

// NewModelExtractor wires the generation client.
func NewModelExtractor(gen genai.Generator) *ModelExtractor {
	return &ModelExtractor{gen: gen}
}

// modelOffice is the JSON element schema the model is instructed to emit.
type modelOffice struct {
	Name      string   `json:"name"`
	Agency    string   `json:"agency"`
	RoleType  string   `json:"role_type"`
	Address   string   `json:"address"`
	City      string   `json:"city"`
	State     string   `json:"state"`
	Zip       string   `json:"zip"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Phone     string   `json:"phone"`
	Email     string   `json:"email"`
	Website   string   `json:"website"`
	Functions []string `json:"functions"`
	Notes     string   `json:"notes"`
}

// Extract runs the model strategy over parsed content.
func (m *ModelExtractor) Extract(ctx context.Context, text string, src *store.Source) *Result {
	prompt := buildPrompt(text, src)

	raw, err := m.gen.Generate(ctx, prompt)
	if err != nil {
		return &Result{Method: "model", Confidence: 0.1,
			Errors: []string{fmt.Sprintf("generation: %v", err)}}
	}

	jsonPart, ok := recoverJSONArray(raw)
	if !ok {
		return &Result{Method: "model", Confidence: 0.1,
			Errors: []string{"no JSON array in model response"}}
	}

	var offices []modelOffice
	if err := json.Unmarshal([]byte(jsonPart), &offices); err != nil {
		return &Result{Method: "model", Confidence: 0.1,
			Errors: []string{fmt.Sprintf("parse model JSON: %v", err)}}
	}

	now := nowMilli()
	var entities []*store.Entity
	for _, o := range offices {
		if strings.TrimSpace(o.Name) == "" {
			continue
		}
		role := o.RoleType
		if role == "" {
			role = inferRole(o.Name)
		}
		e := &store.Entity{
			Name:      strings.TrimSpace(o.Name),
			Agency:    strings.TrimSpace(o.Agency),
			RoleType:  role,
			Address:   strings.TrimSpace(o.Address),
			City:      strings.TrimSpace(o.City),
			State:     strings.TrimSpace(o.State),
			Zip:       strings.TrimSpace(o.Zip),
			Latitude:  o.Latitude,
			Longitude: o.Longitude,
			Phone:     strings.TrimSpace(o.Phone),
			Email:     strings.TrimSpace(o.Email),
			Website:   strings.TrimSpace(o.Website),
			Functions: o.Functions,
			Notes:     strings.TrimSpace(o.Notes),
		}
		finalize(e, src.Agency, src.URL, now)
		entities = append(entities, e)
	}

	confidence := 0.1
	if len(entities) > 0 {
		confidence = 0.8
	}
	return &Result{Entities: entities, Confidence: confidence, Method: "model"}
}

// buildPrompt truncates content to the prompt budget and wraps it with the
// extraction instructions.
func buildPrompt(text string, src *store.Source) string {
	if len(text) > maxPromptContent {
		text = text[:maxPromptContent]
	}
	var sb strings.Builder
	sb.WriteString("Extract every government field office mentioned in the content below.\n")
	sb.WriteString("Return ONLY a JSON array. Each element:\n")
	sb.WriteString(`{"name":"","agency":"","role_type":"regional|field|resident|sector|lab",`)
	sb.WriteString(`"address":"","city":"","state":"","zip":"","latitude":null,"longitude":null,`)
	sb.WriteString(`"phone":"","email":"","website":"","functions":[],"notes":""}` + "\n")
	if src.Agency != "" {
		sb.WriteString("The content is published by " + src.Agency + ".\n")
	}
	sb.WriteString("\nContent:\n")
	sb.WriteString(text)
	return sb.String()
}

// recoverJSONArray scans raw model output for the first '[' and the last
// ']' and returns the bracketed substring. Models routinely wrap the array
// in prose or markdown fences.
func recoverJSONArray(raw string) (string, bool) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}
