package detectors

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/1cbyc/view0x-sub000/internal/solidity"
)

// loc finds the first occurrence of needle in src and returns its byte
// range, failing the test when absent.
func loc(t *testing.T, src, needle string) solidity.Location {
	t.Helper()
	i := strings.Index(src, needle)
	require.GreaterOrEqual(t, i, 0, "needle %q not found in source", needle)
	return solidity.Location{Start: i, End: i + len(needle)}
}

func node(typ string, l solidity.Location) *solidity.Node {
	return solidity.NewNode(typ, l)
}

func identifier(t *testing.T, src, name string) *solidity.Node {
	return node("Identifier", loc(t, src, name)).Set("name", name)
}

// msgSender builds the MemberAccess tree for msg.sender.
func msgSender(t *testing.T, src string) *solidity.Node {
	return node("MemberAccess", loc(t, src, "msg.sender")).
		Set("memberName", "sender").
		Set("expression", identifier(t, src, "msg"))
}

// stateVar declares a named state variable.
func stateVar(t *testing.T, src, name string) *solidity.Node {
	return node("VariableDeclaration", loc(t, src, name)).
		Set("name", name).
		Set("stateVariable", true)
}

// function wraps statements into a FunctionDefinition with a body.
func function(t *testing.T, src, header, visibility string, statements ...*solidity.Node) *solidity.Node {
	body := node("Block", loc(t, src, header)).Set("statements", statements)
	return node("FunctionDefinition", loc(t, src, header)).
		Set("visibility", visibility).
		Set("body", body)
}

// sourceUnit assembles contract members under SourceUnit/ContractDefinition.
func sourceUnit(src string, pragma *solidity.Node, members ...*solidity.Node) *solidity.Node {
	contract := solidity.NewNode("ContractDefinition", solidity.Location{Start: 0, End: len(src)}).
		Set("name", "C").
		Set("nodes", members)
	top := []*solidity.Node{}
	if pragma != nil {
		top = append(top, pragma)
	}
	top = append(top, contract)
	return solidity.NewNode("SourceUnit", solidity.Location{Start: 0, End: len(src)}).
		Set("nodes", top)
}

func pragmaDirective(versions ...string) *solidity.Node {
	literals := append([]string{"solidity"}, versions...)
	return solidity.NewNode("PragmaDirective", solidity.Location{}).
		Set("literals", literals)
}

func index(src string, root *solidity.Node) *solidity.Index {
	return solidity.NewIndex(root, src)
}
