package agent

import (
	"reflect"
	"testing"

	"github.com/haasonsaas/agentcore/pkg/models"
)

func TestEffectiveReadOnlyCannotBeLoosened(t *testing.T) {
	spec := models.DefaultCatalog[models.AgentTypeExplore] // isReadOnly: true
	task := models.AgentTask{ReadOnly: false}

	if !EffectiveReadOnly(task, spec) {
		t.Fatal("a read-only agent type must stay read-only even if the task asks otherwise")
	}
}

func TestEffectiveReadOnlyTightens(t *testing.T) {
	spec := models.DefaultCatalog[models.AgentTypeCode] // isReadOnly: false
	task := models.AgentTask{ReadOnly: true}

	if !EffectiveReadOnly(task, spec) {
		t.Fatal("a task may tighten a non-read-only agent type")
	}
}

func TestAllowedToolsCompletionIsAlwaysEmpty(t *testing.T) {
	spec := models.DefaultCatalog[models.AgentTypeCompletion]
	got := AllowedTools(models.AgentTask{ReadOnly: false}, spec)
	if got != nil {
		t.Fatalf("expected no tools for completion, got %v", got)
	}
}

func TestAllowedToolsWildcardWhenNotReadOnly(t *testing.T) {
	spec := models.DefaultCatalog[models.AgentTypeGeneralPurpose]
	got := AllowedTools(models.AgentTask{}, spec)
	if !reflect.DeepEqual(got, []string{"*"}) {
		t.Fatalf("expected wildcard, got %v", got)
	}
}

func TestAllowedToolsWildcardIntersectsWhenReadOnly(t *testing.T) {
	spec := models.DefaultCatalog[models.AgentTypeGeneralPurpose]
	got := AllowedTools(models.AgentTask{ReadOnly: true}, spec)
	if !reflect.DeepEqual(got, models.ReadOnlyToolAllowlist) {
		t.Fatalf("expected the read-only allowlist, got %v", got)
	}
}

func TestAllowedToolsExplicitAllowlistIntersectsReadOnly(t *testing.T) {
	spec := models.AgentTypeSpec{
		Type:          models.AgentTypeCode,
		ToolAllowlist: []string{"bash", "write_file", "grep"},
	}
	got := AllowedTools(models.AgentTask{ReadOnly: true}, spec)
	if !reflect.DeepEqual(got, []string{"bash", "grep"}) {
		t.Fatalf("expected write_file filtered out, got %v", got)
	}
}

// TestExploreReadOnlyEnforcement mirrors scenario S1: an explore task that
// asks for readOnly=false must still end up read-only, with glob allowed
// and write_file excluded.
func TestExploreReadOnlyEnforcement(t *testing.T) {
	spec := models.DefaultCatalog[models.AgentTypeExplore]
	task := models.AgentTask{AgentType: models.AgentTypeExplore, ReadOnly: false, Prompt: "List .md files"}

	if !EffectiveReadOnly(task, spec) {
		t.Fatal("expected explore to be forced read-only")
	}
	allowed := AllowedTools(task, spec)
	hasGlob, hasWrite := false, false
	for _, tool := range allowed {
		if tool == "glob" {
			hasGlob = true
		}
		if tool == "write_file" {
			hasWrite = true
		}
	}
	if !hasGlob {
		t.Fatalf("expected glob in allowed tools, got %v", allowed)
	}
	if hasWrite {
		t.Fatalf("expected write_file excluded, got %v", allowed)
	}
}

func TestAllowedToolsExplicitAllowlistPassesThroughWhenNotReadOnly(t *testing.T) {
	spec := models.AgentTypeSpec{
		Type:          models.AgentTypeExplore,
		ToolAllowlist: []string{"bash", "read_file"},
		IsReadOnly:    false,
	}
	got := AllowedTools(models.AgentTask{}, spec)
	if !reflect.DeepEqual(got, []string{"bash", "read_file"}) {
		t.Fatalf("expected allowlist unchanged, got %v", got)
	}
}
