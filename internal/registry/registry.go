// Package registry holds the thread-safe tool, resource, prompt, and
// completion registries a server composes at startup (spec §4.3). It owns
// the name-validation grammar and the reserved-identifier deny-list; the
// behavioral contracts being registered (mcp.Tool, mcp.ResourceProvider,
// mcp.PromptProvider, mcp.CompletionHandler) live in internal/mcp.
package registry

import (
	"context"
	"fmt"
	"sync"
	"unicode"

	internalerrors "github.com/Epistates/turbomcp-sub009/internal/errors"
	"github.com/Epistates/turbomcp-sub009/internal/mcp"
)

// maxNameLength bounds every name checked by ValidateName; validateURI
// allows resource URIs up to four times this length. Completion reference
// names are not length-checked.
const maxNameLength = 128

// reserved holds identifiers no registrant may claim because the router
// dispatches them itself or the transport layer treats them specially.
var reserved = map[string]bool{
	"initialize":   true,
	"initialized":  true,
	"shutdown":     true,
	"ping":         true,
	"admin":        true,
	"root":         true,
	"system":       true,
	"internal":     true,
}

// ValidateName checks a tool or prompt name against spec §4.3's identifier
// grammar: non-empty, at most maxNameLength bytes, not in the reserved
// deny-list, first character a letter or underscore, and every subsequent
// character a letter, digit, '_', '-', or '.'.
// Resource URIs are checked by validateURI instead, which applies neither
// the grammar nor the deny-list.
func ValidateName(name string) error {
	if name == "" {
		return internalerrors.NewKind("registry", "ValidateName", internalerrors.KindInvalidParams,
			fmt.Errorf("name must not be empty"))
	}
	if len(name) > maxNameLength {
		return internalerrors.NewKind("registry", "ValidateName", internalerrors.KindInvalidParams,
			fmt.Errorf("name exceeds %d bytes", maxNameLength))
	}
	if reserved[name] {
		return internalerrors.NewKind("registry", "ValidateName", internalerrors.KindInvalidParams,
			fmt.Errorf("name %q is reserved", name))
	}
	for i, r := range name {
		if i == 0 {
			if unicode.IsLetter(r) || r == '_' {
				continue
			}
			return internalerrors.NewKind("registry", "ValidateName", internalerrors.KindInvalidParams,
				fmt.Errorf("name %q must start with a letter or underscore", name))
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == '.' {
			continue
		}
		return internalerrors.NewKind("registry", "ValidateName", internalerrors.KindInvalidParams,
			fmt.Errorf("name %q contains invalid character %q", name, r))
	}
	return nil
}

// validateURI rejects an empty URI and one longer than 4*maxNameLength
// bytes. It applies neither the reserved deny-list nor the identifier
// grammar, since a resource URI (e.g. "file:///etc/hosts" or
// "https://example.com/x") legitimately contains ':', '/', and '?'.
func validateURI(uri string) error {
	if uri == "" {
		return internalerrors.NewKind("registry", "validateURI", internalerrors.KindInvalidParams,
			fmt.Errorf("uri must not be empty"))
	}
	if len(uri) > maxNameLength*4 {
		return internalerrors.NewKind("registry", "validateURI", internalerrors.KindInvalidParams,
			fmt.Errorf("uri exceeds maximum length"))
	}
	return nil
}

// Tools is a thread-safe registry of mcp.Tool implementations.
type Tools struct {
	mu    sync.RWMutex
	tools map[string]mcp.Tool
}

// NewTools constructs an empty tool registry.
func NewTools() *Tools {
	return &Tools{tools: make(map[string]mcp.Tool)}
}

// Register adds a tool under its own declared name. Re-registration under
// an existing name is rejected; callers that want to replace a tool must
// first remove it explicitly (not currently exposed, since hot-swapping
// tools mid-session is out of scope).
func (r *Tools) Register(tool mcp.Tool) error {
	if tool == nil {
		return internalerrors.NewKind("registry", "Tools.Register", internalerrors.KindInvalidParams,
			fmt.Errorf("tool must not be nil"))
	}
	def := tool.Definition()
	if err := ValidateName(def.Name); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[def.Name]; exists {
		return internalerrors.NewKind("registry", "Tools.Register", internalerrors.KindInvalidParams,
			fmt.Errorf("tool %q already registered", def.Name))
	}
	r.tools[def.Name] = tool
	return nil
}

// Get returns the tool registered under name.
func (r *Tools) Get(name string) (mcp.Tool, error) {
	if name == "" {
		return nil, internalerrors.NewKind("registry", "Tools.Get", internalerrors.KindInvalidParams,
			fmt.Errorf("name must not be empty"))
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	if !ok {
		return nil, internalerrors.NewKind("registry", "Tools.Get", internalerrors.KindMethodNotFound,
			fmt.Errorf("tool %q not found", name))
	}
	return tool, nil
}

// List returns every registered tool's definition, in no particular order.
func (r *Tools) List() []mcp.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]mcp.ToolDefinition, 0, len(r.tools))
	for _, tool := range r.tools {
		defs = append(defs, tool.Definition())
	}
	return defs
}

// Resources is a thread-safe registry of mcp.ResourceProvider implementations
// plus the ResourceTemplate entries describing parameterized families.
type Resources struct {
	mu        sync.RWMutex
	providers map[string]mcp.ResourceProvider
	templates map[string]mcp.ResourceTemplate
}

// NewResources constructs an empty resource registry.
func NewResources() *Resources {
	return &Resources{
		providers: make(map[string]mcp.ResourceProvider),
		templates: make(map[string]mcp.ResourceTemplate),
	}
}

// Register adds a resource provider under its declared URI.
func (r *Resources) Register(provider mcp.ResourceProvider) error {
	if provider == nil {
		return internalerrors.NewKind("registry", "Resources.Register", internalerrors.KindInvalidParams,
			fmt.Errorf("provider must not be nil"))
	}
	def := provider.Definition()
	if err := validateURI(def.URI); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[def.URI]; exists {
		return internalerrors.NewKind("registry", "Resources.Register", internalerrors.KindInvalidParams,
			fmt.Errorf("resource %q already registered", def.URI))
	}
	r.providers[def.URI] = provider
	return nil
}

// RegisterTemplate adds a ResourceTemplate describing a family of resources
// addressed by an RFC 6570 URI template.
func (r *Resources) RegisterTemplate(tmpl mcp.ResourceTemplate) error {
	if err := ValidateName(tmpl.Name); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.templates[tmpl.Name]; exists {
		return internalerrors.NewKind("registry", "Resources.RegisterTemplate", internalerrors.KindInvalidParams,
			fmt.Errorf("resource template %q already registered", tmpl.Name))
	}
	r.templates[tmpl.Name] = tmpl
	return nil
}

// Get returns the resource provider registered under uri.
func (r *Resources) Get(ctx context.Context, uri string) (*mcp.Resource, error) {
	r.mu.RLock()
	provider, ok := r.providers[uri]
	r.mu.RUnlock()
	if !ok {
		return nil, internalerrors.NewKind("registry", "Resources.Get", internalerrors.KindInvalidParams,
			fmt.Errorf("resource %q not found", uri))
	}
	return provider.Read(ctx)
}

// List returns every registered resource's definition.
func (r *Resources) List() []mcp.ResourceDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]mcp.ResourceDefinition, 0, len(r.providers))
	for _, provider := range r.providers {
		defs = append(defs, provider.Definition())
	}
	return defs
}

// ListTemplates returns every registered resource template.
func (r *Resources) ListTemplates() []mcp.ResourceTemplate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tmpls := make([]mcp.ResourceTemplate, 0, len(r.templates))
	for _, tmpl := range r.templates {
		tmpls = append(tmpls, tmpl)
	}
	return tmpls
}

// Prompts is a thread-safe registry of mcp.PromptProvider implementations.
type Prompts struct {
	mu       sync.RWMutex
	prompts  map[string]mcp.PromptProvider
}

// NewPrompts constructs an empty prompt registry.
func NewPrompts() *Prompts {
	return &Prompts{prompts: make(map[string]mcp.PromptProvider)}
}

// Register adds a prompt provider under its declared name.
func (r *Prompts) Register(provider mcp.PromptProvider) error {
	if provider == nil {
		return internalerrors.NewKind("registry", "Prompts.Register", internalerrors.KindInvalidParams,
			fmt.Errorf("provider must not be nil"))
	}
	def := provider.Definition()
	if err := ValidateName(def.Name); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.prompts[def.Name]; exists {
		return internalerrors.NewKind("registry", "Prompts.Register", internalerrors.KindInvalidParams,
			fmt.Errorf("prompt %q already registered", def.Name))
	}
	r.prompts[def.Name] = provider
	return nil
}

// Get returns the prompt provider registered under name.
func (r *Prompts) Get(name string) (mcp.PromptProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	provider, ok := r.prompts[name]
	if !ok {
		return nil, internalerrors.NewKind("registry", "Prompts.Get", internalerrors.KindInvalidParams,
			fmt.Errorf("prompt %q not found", name))
	}
	return provider, nil
}

// List returns every registered prompt's definition.
func (r *Prompts) List() []mcp.Prompt {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]mcp.Prompt, 0, len(r.prompts))
	for _, provider := range r.prompts {
		defs = append(defs, provider.Definition())
	}
	return defs
}

// Completions is a thread-safe registry of mcp.CompletionHandler
// implementations, keyed by the logical reference type they serve
// ("ref/prompt" or "ref/resource").
type Completions struct {
	mu       sync.RWMutex
	handlers map[string]mcp.CompletionHandler
}

// NewCompletions constructs an empty completion-handler registry.
func NewCompletions() *Completions {
	return &Completions{handlers: make(map[string]mcp.CompletionHandler)}
}

// Register adds a completion handler for a reference type.
func (r *Completions) Register(refType string, handler mcp.CompletionHandler) error {
	if refType == "" {
		return internalerrors.NewKind("registry", "Completions.Register", internalerrors.KindInvalidParams,
			fmt.Errorf("reference type must not be empty"))
	}
	if handler == nil {
		return internalerrors.NewKind("registry", "Completions.Register", internalerrors.KindInvalidParams,
			fmt.Errorf("handler must not be nil"))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[refType] = handler
	return nil
}

// Get returns the completion handler registered for refType.
func (r *Completions) Get(refType string) (mcp.CompletionHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[refType]
	return h, ok
}

// Registry bundles the four sub-registries a router dispatches against.
type Registry struct {
	Tools       *Tools
	Resources   *Resources
	Prompts     *Prompts
	Completions *Completions
}

// New constructs an empty Registry with all four sub-registries initialized.
func New() *Registry {
	return &Registry{
		Tools:       NewTools(),
		Resources:   NewResources(),
		Prompts:     NewPrompts(),
		Completions: NewCompletions(),
	}
}
