package tool

import "strings"

// Qualified is the structured identity of a tool that originates from a
// named external source (e.g. a specific MCP server). The pair is carried
// alongside the descriptor; flattening to a single string happens only at
// the boundary where a protocol requires a flat identifier. Qualification
// is namespacing only and never changes invocation semantics.
type Qualified struct {
	Source string
	Name   string
}

// Flatten renders "source.name" (or just the bare name when Source is
// empty) sanitized so that only letters, digits, '_' and '-' remain; every
// other rune, including the joining dot, becomes '_'.
func (q Qualified) Flatten() string {
	joined := q.Name
	if q.Source != "" {
		joined = q.Source + "." + q.Name
	}
	return sanitizeName(joined)
}

func sanitizeName(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	return sb.String()
}

// namespacedTool exposes a source-provided tool under its flattened
// qualified name.
type namespacedTool struct {
	Tool
	flat string
}

// Namespaced wraps a tool from the named source so that its exposed name is
// the sanitized "source.name" form. Behavior is otherwise unchanged.
func Namespaced(source string, t Tool) Tool {
	if source == "" {
		return t
	}
	return &namespacedTool{Tool: t, flat: Qualified{Source: source, Name: t.Name()}.Flatten()}
}

func (n *namespacedTool) Name() string { return n.flat }
