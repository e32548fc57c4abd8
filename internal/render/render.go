// Package render defines the report-rendering collaborator: a function from
// generated report text to a binary artifact suitable for storage and
// download. Rendering mechanics (layout, branding, PDF conversion) live
// behind the Renderer interface; the pipeline only stores the bytes.
package render

import (
	"context"
	"errors"
	"strings"
)

// Renderer converts report text into a downloadable artifact.
type Renderer interface {
	// Render returns the artifact bytes and their content type.
	Render(ctx context.Context, reportText string) ([]byte, string, error)
}

// MarkdownRenderer emits the report text as a UTF-8 markdown artifact. It is
// the default renderer for environments without a document-conversion
// service.
type MarkdownRenderer struct{}

// Render implements Renderer.
func (MarkdownRenderer) Render(_ context.Context, reportText string) ([]byte, string, error) {
	text := strings.TrimSpace(reportText)
	if text == "" {
		return nil, "", errors.New("render: empty report text")
	}
	return []byte(text + "\n"), "text/markdown; charset=utf-8", nil
}
