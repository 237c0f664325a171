package mcp

// InitializeParams contains parameters for the initialize method.
type InitializeParams struct {
	// ProtocolVersion is the MCP protocol version the client supports.
	ProtocolVersion string `json:"protocolVersion" validate:"required"`

	// ClientInfo contains metadata about the client.
	ClientInfo Implementation `json:"clientInfo"`

	// Capabilities describes what the client supports.
	Capabilities ClientCapabilities `json:"capabilities,omitempty"`
}

// ClientInfo is retained as an alias of Implementation for callers that
// still construct it by the narrower historical name.
type ClientInfo = Implementation

// ClientCapabilities describes what the client supports.
type ClientCapabilities struct {
	// Roots indicates if the client supports workspace roots.
	Roots *RootsCapability `json:"roots,omitempty"`

	// Sampling indicates if the client supports sampling.
	Sampling *SamplingCapability `json:"sampling,omitempty"`

	// Elicitation indicates if the client supports elicitation/create.
	Elicitation *ElicitationCapability `json:"elicitation,omitempty"`
}

// RootsCapability indicates roots support.
type RootsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// SamplingCapability indicates sampling support.
type SamplingCapability struct{}

// ElicitationCapability indicates elicitation support.
type ElicitationCapability struct{}

// InitializeResult is the result of the initialize method.
type InitializeResult struct {
	// ProtocolVersion is the MCP protocol version the server supports.
	ProtocolVersion string `json:"protocolVersion"`

	// ServerInfo contains metadata about the server.
	ServerInfo Implementation `json:"serverInfo"`

	// Capabilities describes what the server supports.
	Capabilities Capabilities `json:"capabilities"`
}

// ServerInfoResponse is retained as an alias of Implementation.
type ServerInfoResponse = Implementation

// Capabilities describes what the MCP server supports. Declared once at
// initialize time and immutable for the session's lifetime (spec §3.3).
type Capabilities struct {
	// Tools indicates the server supports tools.
	Tools *ToolsCapability `json:"tools,omitempty"`

	// Resources indicates the server supports resources.
	Resources *ResourcesCapability `json:"resources,omitempty"`

	// Prompts indicates the server supports prompts.
	Prompts *PromptsCapability `json:"prompts,omitempty"`

	// Logging indicates the server supports logging.
	Logging *LoggingCapability `json:"logging,omitempty"`

	// Completions indicates the server supports completion/complete.
	Completions *CompletionsCapability `json:"completions,omitempty"`
}

// ToolsCapability indicates tools support.
type ToolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// ResourcesCapability indicates resources support.
type ResourcesCapability struct {
	Subscribe   bool `json:"subscribe,omitempty"`
	ListChanged bool `json:"listChanged,omitempty"`
}

// PromptsCapability indicates prompts support.
type PromptsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// LoggingCapability indicates logging support.
type LoggingCapability struct{}

// CompletionsCapability indicates completion/complete support.
type CompletionsCapability struct{}

// ToolsListResult is the result of the tools/list method.
type ToolsListResult struct {
	// Tools is the list of available tools.
	Tools []ToolDefinition `json:"tools"`
}

// ToolsCallParams contains parameters for the tools/call method.
type ToolsCallParams struct {
	// Name is the tool name to call.
	Name string `json:"name" validate:"required"`

	// Arguments contains the tool-specific arguments.
	Arguments map[string]any `json:"arguments,omitempty"`
}

// CallToolResult is the result of the tools/call method, per spec §3.2.
type CallToolResult struct {
	// Content contains the ordered tool execution results.
	Content []Content `json:"content"`

	// IsError indicates the tool itself reported a failure. This is
	// distinct from a JSON-RPC protocol error: the call succeeded, the
	// tool's outcome did not.
	IsError bool `json:"isError,omitempty"`

	// StructuredContent carries a typed result alongside Content, when the
	// tool declares an OutputSchema. Both may be populated simultaneously.
	StructuredContent any `json:"structuredContent,omitempty"`

	// Meta carries implementation-defined metadata.
	Meta map[string]any `json:"_meta,omitempty"`
}

// ToolsCallResult is retained as an alias for the historical name.
type ToolsCallResult = CallToolResult

// Content is a tagged-union content block, one of {Text, Image, Audio,
// ResourceLink, EmbeddedResource, ToolUse, ToolResult} per spec §3.2.
// Unknown fields are tolerated on decode for forward compatibility; only
// the fields relevant to Type are expected to be populated.
type Content struct {
	// Type discriminates the union variant.
	Type ContentType `json:"type"`

	// Text holds the payload for Type == text.
	Text string `json:"text,omitempty"`

	// Data holds a base64 payload for Type == image or audio.
	Data string `json:"data,omitempty"`

	// MimeType describes Data's or Resource's content type.
	MimeType string `json:"mimeType,omitempty"`

	// URI, Name, Description, Size describe a resource_link.
	URI         string `json:"uri,omitempty"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Size        *int64 `json:"size,omitempty"`

	// Resource carries the inline payload for Type == embedded_resource.
	Resource *EmbeddedResource `json:"resource,omitempty"`

	// ToolUseID, ToolName, Input describe Type == tool_use.
	ToolUseID string         `json:"toolUseId,omitempty"`
	ToolName  string         `json:"toolName,omitempty"`
	Input     map[string]any `json:"input,omitempty"`

	// Output and IsError describe Type == tool_result.
	Output  []Content `json:"output,omitempty"`
	IsError bool      `json:"isError,omitempty"`

	// Annotations carries audience/priority/freshness hints, valid on any
	// variant.
	Annotations *Annotations `json:"annotations,omitempty"`

	// Meta carries implementation-defined extension metadata.
	Meta map[string]any `json:"_meta,omitempty"`
}

// TextContent builds a text Content block, the common case.
func TextContent(text string) Content {
	return Content{Type: ContentTypeText, Text: text}
}

// ResourcesListResult is the result of the resources/list method.
type ResourcesListResult struct {
	// Resources is the list of available resources.
	Resources []ResourceDefinition `json:"resources"`
}

// ResourcesReadParams contains parameters for the resources/read method.
type ResourcesReadParams struct {
	// URI is the resource URI to read.
	URI string `json:"uri" validate:"required"`
}

// ResourcesReadResult is the result of the resources/read method.
type ResourcesReadResult struct {
	// Contents contains the resource content.
	Contents []ResourceContent `json:"contents"`
}

// ResourceContent represents the content of a resource.
type ResourceContent struct {
	// URI is the resource URI.
	URI string `json:"uri"`

	// MimeType indicates the content type.
	MimeType string `json:"mimeType,omitempty"`

	// Text contains the resource content as text.
	Text string `json:"text,omitempty"`

	// Blob contains base64-encoded binary content.
	Blob string `json:"blob,omitempty"`
}
