package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"
)

// GeminiProvider implements Provider on the Gemini API.
type GeminiProvider struct {
	client *genai.Client
}

// NewGeminiProvider builds a provider over the Gemini developer API.
func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, errors.New("llm: api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: create gemini client: %w", err)
	}
	return &GeminiProvider{client: client}, nil
}

// Generate implements Provider.
func (p *GeminiProvider) Generate(ctx context.Context, req Request) (*Result, error) {
	if req.Model == "" {
		return nil, &ProviderError{Class: ClassInvalidArgument, Message: "model is required"}
	}
	if len(req.Parts) == 0 {
		return nil, &ProviderError{Class: ClassInvalidArgument, Message: "prompt is empty"}
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.CacheRef != "" {
		cfg.CachedContent = req.CacheRef
	}

	resp, err := p.client.Models.GenerateContent(ctx, req.Model, toContents(req.Parts), cfg)
	if err != nil {
		return nil, classify(err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, &ProviderError{Class: ClassInternal, Message: "no candidates in response"}
	}
	text := resp.Text()
	if text == "" {
		return nil, &ProviderError{Class: ClassInternal, Message: "empty response text"}
	}
	return &Result{Text: text, Usage: extractUsage(resp)}, nil
}

// CreateCache implements Provider.
func (p *GeminiProvider) CreateCache(ctx context.Context, model string, parts []Part, ttl time.Duration) (string, error) {
	cached, err := p.client.Caches.Create(ctx, model, &genai.CreateCachedContentConfig{
		Contents: toContents(parts),
		TTL:      ttl,
	})
	if err != nil {
		return "", classify(err)
	}
	return cached.Name, nil
}

// UploadFile implements Provider.
func (p *GeminiProvider) UploadFile(ctx context.Context, data []byte, mimeType string) (*FileRef, error) {
	f, err := p.client.Files.Upload(ctx, bytes.NewReader(data), &genai.UploadFileConfig{
		MIMEType: mimeType,
	})
	if err != nil {
		return nil, classify(err)
	}
	return &FileRef{Name: f.Name, URI: f.URI, MIMEType: mimeType}, nil
}

// DeleteFile implements Provider.
func (p *GeminiProvider) DeleteFile(ctx context.Context, name string) error {
	_, err := p.client.Files.Delete(ctx, name, nil)
	if err != nil {
		pe := classify(err)
		var perr *ProviderError
		if errors.As(pe, &perr) && perr.Code == http.StatusNotFound {
			return nil
		}
		return pe
	}
	return nil
}

// toContents converts prompt parts to the SDK representation, keeping text
// and file parts in order within a single user turn.
func toContents(parts []Part) []*genai.Content {
	out := make([]*genai.Part, 0, len(parts))
	for _, part := range parts {
		if part.FileURI != "" {
			out = append(out, genai.NewPartFromURI(part.FileURI, part.MIMEType))
			continue
		}
		out = append(out, genai.NewPartFromText(part.Text))
	}
	return []*genai.Content{genai.NewContentFromParts(out, genai.RoleUser)}
}

// extractUsage pulls token counts out of the response. Any field the API
// omits stays zero.
func extractUsage(resp *genai.GenerateContentResponse) Usage {
	var u Usage
	if resp.UsageMetadata == nil {
		return u
	}
	u.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
	u.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	u.CachedTokens = int(resp.UsageMetadata.CachedContentTokenCount)
	return u
}

// classify maps an SDK error onto a ProviderError by HTTP status.
func classify(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		if errors.Is(err, context.DeadlineExceeded) {
			return &ProviderError{Class: ClassTimeout, Message: err.Error()}
		}
		return &ProviderError{Class: ClassUnknown, Message: err.Error()}
	}

	class := ClassUnknown
	switch {
	case apiErr.Code == http.StatusBadRequest:
		class = ClassInvalidArgument
	case apiErr.Code == http.StatusTooManyRequests:
		class = ClassRateLimited
	case apiErr.Code == http.StatusServiceUnavailable:
		class = ClassUnavailable
	case apiErr.Code == http.StatusGatewayTimeout:
		class = ClassTimeout
	case apiErr.Code >= 500:
		class = ClassInternal
	}
	return &ProviderError{Class: class, Code: apiErr.Code, Message: apiErr.Message}
}
