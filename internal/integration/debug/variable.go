package debug

import (
	"context"
	"strings"

	"github.com/google/go-dap"

	"github.com/dshills/scriptpoint/internal/integration/debug/wire"
)

// DefaultMaxVariables bounds the nodes a variables dump prints.
const DefaultMaxVariables = 1000

// truncatedLine ends a dump that reached the node bound.
const truncatedLine = "..."

// dumpEntry is one node of the variable tree waiting to be printed.
type dumpEntry struct {
	name  string
	value string
	ref   int
	depth int
}

// dumpVariables evaluates expr and renders its variable tree depth first,
// one "name: value" line per node indented two spaces per level. A
// reference already expanded is printed again but not expanded, so cyclic
// structures terminate.
func (t *Tracker) dumpVariables(ctx context.Context, frameID int, expr string) (string, error) {
	root, err := t.evaluate(ctx, frameID, expr)
	if err != nil {
		return "", err
	}

	var lines []string
	visited := make(map[int]bool)
	stack := []dumpEntry{{name: expr, value: root.Result, ref: root.VariablesReference}}

	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if len(lines) >= t.maxVariables {
			lines = append(lines, strings.Repeat("  ", e.depth)+truncatedLine)
			break
		}
		lines = append(lines, strings.Repeat("  ", e.depth)+e.name+": "+e.value)

		if e.ref <= 0 || visited[e.ref] {
			continue
		}
		visited[e.ref] = true

		children, err := t.variables(ctx, e.ref)
		if err != nil {
			return "", err
		}
		for i := len(children) - 1; i >= 0; i-- {
			c := children[i]
			stack = append(stack, dumpEntry{
				name:  c.Name,
				value: c.Value,
				ref:   c.VariablesReference,
				depth: e.depth + 1,
			})
		}
	}

	return strings.Join(lines, "\n"), nil
}

// variables fetches the children of a variables reference.
func (t *Tracker) variables(ctx context.Context, ref int) ([]dap.Variable, error) {
	env, err := t.adapter.Request(ctx, wire.CommandVariables, dap.VariablesArguments{VariablesReference: ref})
	if err != nil {
		return nil, err
	}

	var body dap.VariablesResponseBody
	if err := env.DecodeBody(&body); err != nil {
		return nil, err
	}
	return body.Variables, nil
}
