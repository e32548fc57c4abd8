// Tagged-variant extraction payload.
//
// Extracted content used to be a free-form map whose shape depended on the
// extractor that produced it. The variants are now explicit: exactly one of
// the kind-specific field groups is populated, selected by Kind, so consumers
// never probe for field presence at runtime.
package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ContentKind discriminates the ExtractedContent variants.
type ContentKind string

const (
	// ContentKindText is plain or structured text pulled from the document.
	ContentKindText ContentKind = "text"
	// ContentKindVision is a visual description produced for image inputs,
	// with page-level captions.
	ContentKindVision ContentKind = "vision"
	// ContentKindError records a classified extraction failure alongside the
	// partial output, when the extractor chose to persist one.
	ContentKindError ContentKind = "error"
)

// ExtractedContent is the structured result of extracting one document.
// It is a closed sum over {Text, Vision, Error}: Kind selects which of the
// optional field groups is valid.
type ExtractedContent struct {
	Kind ContentKind `json:"kind"`

	// Kind == ContentKindText
	Text *TextContent `json:"text,omitempty"`

	// Kind == ContentKindVision
	Vision *VisionContent `json:"vision,omitempty"`

	// Kind == ContentKindError
	Error *ErrorContent `json:"error,omitempty"`
}

// TextContent carries extracted text plus lightweight structure.
type TextContent struct {
	Body      string `json:"body"`
	PageCount int    `json:"page_count,omitempty"`
	Language  string `json:"language,omitempty"`
}

// VisionContent carries per-page visual descriptions for image documents.
type VisionContent struct {
	Captions []string `json:"captions"`
}

// ErrorContent preserves a classified failure for audit purposes.
type ErrorContent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewTextContent builds a text-variant payload.
func NewTextContent(body string, pages int) *ExtractedContent {
	return &ExtractedContent{Kind: ContentKindText, Text: &TextContent{Body: body, PageCount: pages}}
}

// NewVisionContent builds a vision-variant payload.
func NewVisionContent(captions []string) *ExtractedContent {
	return &ExtractedContent{Kind: ContentKindVision, Vision: &VisionContent{Captions: captions}}
}

// NewErrorContent builds an error-variant payload.
func NewErrorContent(code, message string) *ExtractedContent {
	return &ExtractedContent{Kind: ContentKindError, Error: &ErrorContent{Code: code, Message: message}}
}

// PromptText renders the variant as prompt material for report generation.
// Error variants contribute nothing.
func (c *ExtractedContent) PromptText() string {
	if c == nil {
		return ""
	}
	switch c.Kind {
	case ContentKindText:
		if c.Text != nil {
			return c.Text.Body
		}
	case ContentKindVision:
		if c.Vision != nil {
			out := ""
			for i, cap := range c.Vision.Captions {
				if i > 0 {
					out += "\n"
				}
				out += cap
			}
			return out
		}
	}
	return ""
}

// Validate checks that exactly the field group selected by Kind is set.
func (c *ExtractedContent) Validate() error {
	if c == nil {
		return errors.New("content is nil")
	}
	switch c.Kind {
	case ContentKindText:
		if c.Text == nil || c.Vision != nil || c.Error != nil {
			return fmt.Errorf("content kind %q requires only the text variant", c.Kind)
		}
	case ContentKindVision:
		if c.Vision == nil || c.Text != nil || c.Error != nil {
			return fmt.Errorf("content kind %q requires only the vision variant", c.Kind)
		}
	case ContentKindError:
		if c.Error == nil || c.Text != nil || c.Vision != nil {
			return fmt.Errorf("content kind %q requires only the error variant", c.Kind)
		}
	default:
		return fmt.Errorf("unknown content kind %q", c.Kind)
	}
	return nil
}

// UnmarshalJSON decodes and validates the variant in one step so malformed
// rows surface at the store boundary instead of deep inside generation.
func (c *ExtractedContent) UnmarshalJSON(data []byte) error {
	type alias ExtractedContent
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*c = ExtractedContent(a)
	return c.Validate()
}
