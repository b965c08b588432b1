package agent

import "github.com/haasonsaas/agentcore/pkg/models"

// EffectiveReadOnly computes the read-only flag that actually governs a
// task: once an agent type's spec marks itself read-only, a task cannot
// relax it. The task may only tighten a non-read-only spec.
func EffectiveReadOnly(task models.AgentTask, spec models.AgentTypeSpec) bool {
	return task.ReadOnly || spec.IsReadOnly
}

// AllowedTools computes the tool manifest for a new agent session,
// following §4.2 step 4:
//
//   - completion: always the empty set.
//   - the spec's allowlist is "*" and the effective read-only flag is
//     false: every tool in the session (represented here as the "*"
//     wildcard, resolved by the ModelPortal/ToolRegistry adapter).
//   - otherwise: the spec's explicit allowlist, intersected with the
//     fixed read-only allowlist when read-only is in effect.
func AllowedTools(task models.AgentTask, spec models.AgentTypeSpec) []string {
	if spec.Type == models.AgentTypeCompletion {
		return nil
	}

	readOnly := EffectiveReadOnly(task, spec)

	if spec.AllowsAllTools() && !readOnly {
		return []string{"*"}
	}

	if !readOnly {
		return append([]string(nil), spec.ToolAllowlist...)
	}

	return intersect(spec.ToolAllowlist, models.ReadOnlyToolAllowlist)
}

// intersect returns the elements of `a` that also appear in `b`,
// preserving `a`'s order. If `a` is the wildcard allowlist, the
// intersection is simply `b` (every read-only tool is "available" to an
// all-tools spec once it's forced read-only).
func intersect(a, b []string) []string {
	if len(a) == 1 && a[0] == "*" {
		return append([]string(nil), b...)
	}
	allowed := make(map[string]bool, len(b))
	for _, t := range b {
		allowed[t] = true
	}
	var out []string
	for _, t := range a {
		if allowed[t] {
			out = append(out, t)
		}
	}
	return out
}
