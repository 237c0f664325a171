package mcp

import "strings"

// Icon is an Implementation/Tool/Resource icon reference, either a data URI
// or a remote URL. Construction discriminates the two forms so callers never
// need to inspect the string themselves.
type Icon struct {
	// Src is the icon source: a "data:" URI or an absolute URL.
	Src string `json:"src"`

	// MimeType is the icon's MIME type, required when Src is a data URI
	// without one embedded and recommended otherwise.
	MimeType string `json:"mimeType,omitempty"`

	// Sizes is a space-separated list of icon dimensions (e.g. "16x16 32x32").
	Sizes string `json:"sizes,omitempty"`
}

// IconFrom builds an Icon from a bare source string, discriminating
// data-URI from URL sources per spec §4.2.
func IconFrom(src string) Icon {
	icon := Icon{Src: src}
	if strings.HasPrefix(src, "data:") {
		if semi := strings.IndexByte(src, ';'); semi > len("data:") {
			icon.MimeType = src[len("data:"):semi]
		}
	}
	return icon
}

// Annotations carries audience/priority/freshness hints that may accompany
// any Content block or Resource/ResourceTemplate entry.
type Annotations struct {
	// Audience hints who the content is intended for, e.g. ["user", "assistant"].
	Audience []string `json:"audience,omitempty"`

	// Priority is a 0..1 hint of relative importance.
	Priority *float64 `json:"priority,omitempty"`

	// LastModified is an RFC 3339 timestamp of last modification.
	LastModified string `json:"lastModified,omitempty"`
}

// Implementation identifies a client or server during initialize.
type Implementation struct {
	Name        string `json:"name"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version"`
	Icon        *Icon  `json:"icon,omitempty"`
}

// ResourceTemplate describes a parameterized family of resources addressed
// by an RFC 6570 URI template.
type ResourceTemplate struct {
	URITemplate string       `json:"uriTemplate"`
	Name        string       `json:"name"`
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	MimeType    string       `json:"mimeType,omitempty"`
	Annotations *Annotations `json:"annotations,omitempty"`
}

// Prompt describes a server-provided prompt template.
type Prompt struct {
	Name        string           `json:"name"`
	Title       string           `json:"title,omitempty"`
	Description string           `json:"description,omitempty"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`
}

// PromptArgument describes one named argument a Prompt accepts.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// ContentType enumerates the tagged-union variants a Content block may hold.
type ContentType string

const (
	ContentTypeText             ContentType = "text"
	ContentTypeImage            ContentType = "image"
	ContentTypeAudio            ContentType = "audio"
	ContentTypeResourceLink     ContentType = "resource_link"
	ContentTypeEmbeddedResource ContentType = "embedded_resource"
	ContentTypeToolUse          ContentType = "tool_use"
	ContentTypeToolResult       ContentType = "tool_result"
)

// EmbeddedResource is the inline payload of an "embedded_resource" Content
// block: either Text or base64 Blob is populated, never both.
type EmbeddedResource struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
	Blob     string `json:"blob,omitempty"`
}

// PromptMessage is one turn of a materialized prompt.
type PromptMessage struct {
	Role    string    `json:"role"`
	Content []Content `json:"content"`
}

// GetPromptResult is the result of prompts/get.
type GetPromptResult struct {
	Description string          `json:"description,omitempty"`
	Messages    []PromptMessage `json:"messages"`
}

// PromptsGetParams contains parameters for the prompts/get method.
type PromptsGetParams struct {
	Name      string            `json:"name" validate:"required"`
	Arguments map[string]string `json:"arguments,omitempty"`
}

// PromptsListResult is the result of the prompts/list method.
type PromptsListResult struct {
	Prompts []Prompt `json:"prompts"`
}

// ResourceTemplatesListResult is the result of resources/templates/list.
type ResourceTemplatesListResult struct {
	ResourceTemplates []ResourceTemplate `json:"resourceTemplates"`
}

// ResourcesSubscribeParams/ResourcesUnsubscribeParams name the URI to
// (un)subscribe.
type ResourcesSubscribeParams struct {
	URI string `json:"uri" validate:"required"`
}

type ResourcesUnsubscribeParams struct {
	URI string `json:"uri" validate:"required"`
}

// CompletionCompleteParams contains parameters for completion/complete.
type CompletionCompleteParams struct {
	Ref      CompletionReference `json:"ref"`
	Argument CompletionArgument  `json:"argument"`
}

// CompletionReference identifies what is being completed: a prompt or
// resource template.
type CompletionReference struct {
	Type string `json:"type"` // "ref/prompt" | "ref/resource"
	Name string `json:"name,omitempty"`
	URI  string `json:"uri,omitempty"`
}

// CompletionArgument is the partial input being completed.
type CompletionArgument struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// CompletionCompleteResult is the result of completion/complete.
type CompletionCompleteResult struct {
	Completion CompletionValues `json:"completion"`
}

// CompletionValues is the candidate-list shape the spec's completion
// handlers return.
type CompletionValues struct {
	Values  []string `json:"values"`
	Total   *int     `json:"total,omitempty"`
	HasMore bool     `json:"hasMore,omitempty"`
}

// LoggingSetLevelParams contains parameters for logging/setLevel.
type LoggingSetLevelParams struct {
	Level string `json:"level" validate:"required,oneof=debug info notice warning error critical alert emergency"`
}

// ProgressToken accepts either a string or integer token, per spec §9.
type ProgressToken struct {
	s string
	i int64
	isString bool
}

// NewProgressToken wraps a string or int64 value as a ProgressToken.
func NewProgressToken(v any) (ProgressToken, bool) {
	switch t := v.(type) {
	case string:
		return ProgressToken{s: t, isString: true}, true
	case int64:
		return ProgressToken{i: t}, true
	case int:
		return ProgressToken{i: int64(t)}, true
	case float64:
		return ProgressToken{i: int64(t)}, true
	default:
		return ProgressToken{}, false
	}
}

// Value returns the underlying string or int64 value.
func (p ProgressToken) Value() any {
	if p.isString {
		return p.s
	}
	return p.i
}
