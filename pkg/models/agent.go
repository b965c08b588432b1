// Package models provides the domain types shared by the agent core:
// tasks, the static agent-type catalog, instances, results and team
// definitions. It has no dependency on any concrete provider or transport.
package models

import "time"

// AgentType identifies one of the five fixed agent kinds in the catalog.
type AgentType string

const (
	AgentTypeGeneralPurpose AgentType = "generalPurpose"
	AgentTypeExplore        AgentType = "explore"
	AgentTypeCode           AgentType = "code"
	AgentTypePlan           AgentType = "plan"
	AgentTypeCompletion     AgentType = "completion"
)

// ModelTier selects how a task's provider is resolved. Anything that isn't
// "fast" or "default" is treated as an explicit model identifier.
type ModelTier string

const (
	ModelTierFast    ModelTier = "fast"
	ModelTierDefault ModelTier = "default"
)

// AgentTask is the immutable request to create or resume a sub-agent.
type AgentTask struct {
	Description   string
	Prompt        string
	AgentType     AgentType
	ModelTier     ModelTier
	ResumeAgentID string
	ReadOnly      bool
	Attachments   []string
}

// AgentTypeSpec is one entry of the static agent-type catalog. It is a
// tagged record rather than a subclass: the runner branches on AgentType
// only where behavior genuinely differs.
type AgentTypeSpec struct {
	Type          AgentType
	Description   string
	SystemPrompt  string
	ToolAllowlist []string
	IsReadOnly    bool
}

// AllowsAllTools reports whether the spec's allowlist is the wildcard "*".
func (s AgentTypeSpec) AllowsAllTools() bool {
	return len(s.ToolAllowlist) == 1 && s.ToolAllowlist[0] == "*"
}

// ReadOnlyToolAllowlist is the fixed set of non-mutating tools available to
// any agent running under an effective read-only restriction.
var ReadOnlyToolAllowlist = []string{"bash", "read_file", "grep", "glob", "list_directory"}

// DefaultCatalog is the fixed, build-time catalog of agent types. See
// §6 of the core design for the exact table this mirrors.
var DefaultCatalog = map[AgentType]AgentTypeSpec{
	AgentTypeGeneralPurpose: {
		Type:          AgentTypeGeneralPurpose,
		Description:   "General multi-step research & task",
		SystemPrompt:  "Research and complete multi-step tasks, using any tool available in the session.",
		ToolAllowlist: []string{"*"},
		IsReadOnly:    false,
	},
	AgentTypeExplore: {
		Type:          AgentTypeExplore,
		Description:   "Search/analyze; never modify",
		SystemPrompt:  "Search and analyze the workspace. Never modify any file.",
		ToolAllowlist: append([]string{}, ReadOnlyToolAllowlist...),
		IsReadOnly:    true,
	},
	AgentTypeCode: {
		Type:          AgentTypeCode,
		Description:   "Implement features / fix bugs",
		SystemPrompt:  "Implement the requested feature or fix, using any tool available in the session.",
		ToolAllowlist: []string{"*"},
		IsReadOnly:    false,
	},
	AgentTypePlan: {
		Type:          AgentTypePlan,
		Description:   "Design strategies, no changes",
		SystemPrompt:  "Design an implementation strategy. Do not make any changes.",
		ToolAllowlist: append([]string{}, ReadOnlyToolAllowlist...),
		IsReadOnly:    true,
	},
	AgentTypeCompletion: {
		Type:          AgentTypeCompletion,
		Description:   "Inline completion, low latency",
		SystemPrompt:  "Produce a short, direct completion. Do not call any tool.",
		ToolAllowlist: nil,
		IsReadOnly:    true,
	},
}

// AgentStatus is the agent lifecycle state.
type AgentStatus string

const (
	StatusPending   AgentStatus = "pending"
	StatusRunning   AgentStatus = "running"
	StatusSuspended AgentStatus = "suspended"
	StatusFailed    AgentStatus = "failed"
	StatusCancelled AgentStatus = "cancelled"
)

// legalTransitions enumerates the state machine from §3 of the core design.
// Resume re-enters Running from Suspended; eviction is not a transition, it
// is a removal.
var legalTransitions = map[AgentStatus]map[AgentStatus]bool{
	StatusPending:   {StatusRunning: true},
	StatusRunning:   {StatusSuspended: true, StatusFailed: true, StatusCancelled: true},
	StatusSuspended: {StatusRunning: true},
	StatusFailed:    {},
	StatusCancelled: {},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to AgentStatus) bool {
	next, ok := legalTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

// EvictionEligible reports whether a status is terminal-resumable or terminal-final,
// i.e. eligible for idle eviction. Running is never eligible.
func (s AgentStatus) EvictionEligible() bool {
	switch s {
	case StatusSuspended, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Role is a chat message author.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a model-requested tool invocation.
type ToolCall struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Input []byte `json:"input,omitempty"`
}

// ToolResult is the outcome of executing a ToolCall.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error,omitempty"`
}

// Message is one entry of an agent's resumable history.
type Message struct {
	Role       Role         `json:"role"`
	Content    string       `json:"content,omitempty"`
	ToolCalls  []ToolCall   `json:"tool_calls,omitempty"`
	ToolResult *ToolResult  `json:"tool_result,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}

// ToolManifestEntry is one {name, schema} pair advertised to the model for
// a session; together they define what the model is allowed to call. The
// core computes this once per agent construction and never re-checks it
// per call — the ModelPortal is trusted to honour the manifest it was
// given.
type ToolManifestEntry struct {
	Name        string
	Description string
	Schema      []byte
}

// AgentBinding is the opaque handle a ModelPortal returns for a session:
// the model id, system prompt and allowed tool manifest it was created with.
type AgentBinding struct {
	ModelID      string
	SystemPrompt string
	AllowedTools []string
	ToolManifest []ToolManifestEntry
}

// AgentInstance is the registry's authoritative record of one agent.
// It is exclusively owned by the AgentRegistry; callers hold only
// borrowed references for the duration of one invocation.
type AgentInstance struct {
	ID             string
	Type           AgentType
	Description    string
	ReadOnly       bool
	ModelTier      ModelTier
	Status         AgentStatus
	CreatedAt      time.Time
	LastActivityAt time.Time
	ToolCallCount  uint64
	History        []Message
	Binding        AgentBinding
}

// Clone returns a deep-enough copy suitable for returning from a snapshot
// read (registry list operations are copy-on-read).
func (a AgentInstance) Clone() AgentInstance {
	out := a
	out.History = append([]Message(nil), a.History...)
	out.Binding.AllowedTools = append([]string(nil), a.Binding.AllowedTools...)
	return out
}

// AgentResult is the immutable outcome of one Runner invocation.
type AgentResult struct {
	AgentID       string
	Output        string
	ToolCallCount uint64
	Elapsed       time.Duration
	IsError       bool
	ErrorMessage  string
}

// ToolCallEvent describes one tool invocation for observers. It is mutable
// only within the scope of the single call it describes.
type ToolCallEvent struct {
	FunctionName    string
	PluginName      string
	ArgumentSummary string
	Result          string
	Elapsed         time.Duration
	Success         bool
}

// TeamPattern selects how a TeamDefinition's roles are composed.
type TeamPattern string

const (
	PatternSequential  TeamPattern = "sequential"
	PatternFanOutFanIn TeamPattern = "fanOutFanIn"
	PatternSupervisor  TeamPattern = "supervisor"
)

// TeamRole is one member of a TeamDefinition. PromptTemplate may reference
// the placeholders "{input}" and "{previous}".
type TeamRole struct {
	Name           string
	AgentType      AgentType
	ModelTier      ModelTier
	ReadOnly       bool
	PromptTemplate string
}

// TeamDefinition names a composition of roles executed by one pattern.
type TeamDefinition struct {
	Name    string
	Pattern TeamPattern
	Roles   []TeamRole
}
