// Package tooladapter implements the agent.ToolRegistry port against the
// local filesystem and shell, standing in for the real tool surface named in
// the core's external interfaces. It is adapter code, not core: the core
// never imports this package, it only depends on the agent.ToolRegistry
// interface.
package tooladapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/haasonsaas/agentcore/internal/agent"
)

// DefaultBashTimeout bounds a bash tool invocation when the caller doesn't
// cancel sooner.
const DefaultBashTimeout = 60 * time.Second

// Registry implements agent.ToolRegistry with the fixed read/write/shell
// tool set named in §6: bash, read_file, write_file, edit_file, grep, glob,
// list_directory, plus the nested Task spawn tool once BindSpawner has been
// called. It has no knowledge of agent capability restrictions: filtering
// happens once, when the Runner builds a session's tool manifest, and Lookup
// serves any tool name it knows.
type Registry struct {
	workDir         string
	spawner         TaskSpawner
	userInteraction agent.UserInteraction
}

// NewRegistry roots every relative tool path at workDir.
func NewRegistry(workDir string) *Registry {
	return &Registry{workDir: workDir}
}

func (r *Registry) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(r.workDir, path)
}

// BashArgs are the bash tool's arguments.
type BashArgs struct {
	Command string `json:"command" jsonschema:"required,description=Shell command to run"`
}

// ReadFileArgs are the read_file tool's arguments.
type ReadFileArgs struct {
	Path  string `json:"path" jsonschema:"required,description=File path to read"`
	Limit int    `json:"limit,omitempty" jsonschema:"description=Maximum bytes to return"`
}

// WriteFileArgs are the write_file tool's arguments.
type WriteFileArgs struct {
	Path    string `json:"path" jsonschema:"required,description=File path to write"`
	Content string `json:"content" jsonschema:"required,description=Full file content"`
}

// EditFileArgs are the edit_file tool's arguments.
type EditFileArgs struct {
	Path    string `json:"path" jsonschema:"required,description=File path to edit"`
	OldText string `json:"oldText" jsonschema:"required,description=Exact text to replace"`
	NewText string `json:"newText" jsonschema:"required,description=Replacement text"`
}

// GrepArgs are the grep tool's arguments.
type GrepArgs struct {
	Pattern      string `json:"pattern" jsonschema:"required,description=Regular expression to search for"`
	Path         string `json:"path,omitempty" jsonschema:"description=Directory to search, defaults to the workspace root"`
	IgnoreCase   bool   `json:"ignoreCase,omitempty"`
	ContextLines int    `json:"contextLines,omitempty"`
}

// GlobArgs are the glob tool's arguments.
type GlobArgs struct {
	Pattern   string `json:"pattern" jsonschema:"required,description=Glob pattern to match"`
	Directory string `json:"directory,omitempty" jsonschema:"description=Directory to search, defaults to the workspace root"`
}

// ListDirectoryArgs are the list_directory tool's arguments.
type ListDirectoryArgs struct {
	Path     string `json:"path,omitempty" jsonschema:"description=Directory to list, defaults to the workspace root"`
	MaxDepth int    `json:"maxDepth,omitempty"`
}

// builtinTool is one entry of the fixed, non-spawn tool table: a name,
// description, an args struct instance reflected into a JSON Schema, and
// the invoke function.
type builtinTool struct {
	name        string
	description string
	argsSample  any
	invoke      func(ctx context.Context, args []byte) (string, error)
}

func (r *Registry) builtins() []builtinTool {
	out := []builtinTool{
		{"bash", "Run a shell command in the workspace.", BashArgs{}, r.bash},
		{"read_file", "Read a file's contents.", ReadFileArgs{}, r.readFile},
		{"write_file", "Write a file's contents, creating or overwriting it.", WriteFileArgs{}, r.writeFile},
		{"edit_file", "Replace one exact occurrence of text in a file.", EditFileArgs{}, r.editFile},
		{"grep", "Search file contents for a regular expression.", GrepArgs{}, r.grep},
		{"glob", "List paths matching a glob pattern.", GlobArgs{}, r.glob},
		{"list_directory", "List a directory's immediate entries.", ListDirectoryArgs{}, r.listDirectory},
	}
	return append(out, r.extraBuiltins()...)
}

func (t builtinTool) handle() agent.ToolHandle {
	return agent.ToolHandle{Name: t.name, Description: t.description, Schema: schemaFor(t.argsSample), Invoke: t.invoke}
}

// Lookup implements agent.ToolRegistry.
func (r *Registry) Lookup(name string) (agent.ToolHandle, bool) {
	if name == taskToolName {
		return r.taskToolHandle()
	}
	for _, t := range r.builtins() {
		if t.name == name {
			return t.handle(), true
		}
	}
	return agent.ToolHandle{}, false
}

// List implements agent.ToolRegistry, enumerating every tool this registry
// can serve — including the Task spawn tool once a spawner is bound.
func (r *Registry) List() []agent.ToolHandle {
	builtins := r.builtins()
	out := make([]agent.ToolHandle, 0, len(builtins)+1)
	for _, t := range builtins {
		out = append(out, t.handle())
	}
	if handle, ok := r.taskToolHandle(); ok {
		out = append(out, handle)
	}
	return out
}

func (r *Registry) bash(ctx context.Context, args []byte) (string, error) {
	var in BashArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("invalid bash arguments: %w", err)
	}
	if strings.TrimSpace(in.Command) == "" {
		return "", fmt.Errorf("command is required")
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultBashTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", in.Command)
	cmd.Dir = r.workDir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return out.String(), fmt.Errorf("command failed: %w", err)
	}
	return out.String(), nil
}

func (r *Registry) readFile(ctx context.Context, args []byte) (string, error) {
	var in ReadFileArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("invalid read_file arguments: %w", err)
	}
	content, err := os.ReadFile(r.resolve(in.Path))
	if err != nil {
		return "", err
	}
	if in.Limit > 0 && len(content) > in.Limit {
		content = content[:in.Limit]
	}
	return string(content), nil
}

func (r *Registry) writeFile(ctx context.Context, args []byte) (string, error) {
	var in WriteFileArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("invalid write_file arguments: %w", err)
	}
	path := r.resolve(in.Path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(in.Content), 0o644); err != nil {
		return "", err
	}
	return fmt.Sprintf("wrote %d bytes to %s", len(in.Content), in.Path), nil
}

func (r *Registry) editFile(ctx context.Context, args []byte) (string, error) {
	var in EditFileArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("invalid edit_file arguments: %w", err)
	}
	path := r.resolve(in.Path)
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	count := strings.Count(string(content), in.OldText)
	if count != 1 {
		return "", fmt.Errorf("expected exactly one occurrence of old text, found %d", count)
	}
	updated := strings.Replace(string(content), in.OldText, in.NewText, 1)
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return "", err
	}
	return fmt.Sprintf("edited %s", in.Path), nil
}

func (r *Registry) grep(ctx context.Context, args []byte) (string, error) {
	var in GrepArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("invalid grep arguments: %w", err)
	}
	pattern := in.Pattern
	if in.IgnoreCase {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", fmt.Errorf("invalid pattern: %w", err)
	}

	root := r.resolve(in.Path)
	if root == "" {
		root = r.workDir
	}

	var b strings.Builder
	matches := 0
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		content, rerr := os.ReadFile(path)
		if rerr != nil {
			return nil
		}
		for i, line := range strings.Split(string(content), "\n") {
			if re.MatchString(line) {
				fmt.Fprintf(&b, "%s:%d:%s\n", path, i+1, line)
				matches++
			}
		}
		return nil
	})
	if matches == 0 {
		return "no matches", nil
	}
	return b.String(), nil
}

func (r *Registry) glob(ctx context.Context, args []byte) (string, error) {
	var in GlobArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("invalid glob arguments: %w", err)
	}
	dir := r.resolve(in.Directory)
	if dir == "" {
		dir = r.workDir
	}
	matches, err := filepath.Glob(filepath.Join(dir, in.Pattern))
	if err != nil {
		return "", err
	}
	return strings.Join(matches, "\n"), nil
}

func (r *Registry) listDirectory(ctx context.Context, args []byte) (string, error) {
	var in ListDirectoryArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("invalid list_directory arguments: %w", err)
	}
	dir := r.resolve(in.Path)
	if dir == "" {
		dir = r.workDir
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, e := range entries {
		if e.IsDir() {
			b.WriteString(e.Name() + "/\n")
		} else {
			b.WriteString(e.Name() + "\n")
		}
	}
	return b.String(), nil
}
