package detectors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1cbyc/view0x-sub000/internal/model"
	"github.com/1cbyc/view0x-sub000/internal/solidity"
)

const ownableSrc = `contract Ownable {
    address owner;

    function setOwner(address newOwner) public {
        owner = newOwner;
    }
}`

func buildSetOwner(t *testing.T, modifierName string, withRequire bool) *solidity.Index {
	src := ownableSrc

	write := node("Assignment", loc(t, src, "owner = newOwner")).
		Set("leftHandSide", identifier(t, src, "owner")).
		Set("rightHandSide", identifier(t, src, "newOwner"))
	stmts := []*solidity.Node{node("ExpressionStatement", write.Loc).Set("expression", write)}

	if withRequire {
		cond := node("BinaryOperation", loc(t, src, "owner")).
			Set("operator", "==").
			Set("leftExpression", msgSender(t, src)).
			Set("rightExpression", identifier(t, src, "owner"))
		guard := node("FunctionCall", loc(t, src, "function setOwner")).
			Set("expression", node("Identifier", solidity.Location{}).Set("name", "require")).
			Set("arguments", []*solidity.Node{cond})
		stmts = append([]*solidity.Node{node("ExpressionStatement", guard.Loc).Set("expression", guard)}, stmts...)
	}

	fn := function(t, src, "function setOwner", "public", stmts...)
	if modifierName != "" {
		inv := node("ModifierInvocation", solidity.Location{}).
			Set("modifierName", node("Identifier", solidity.Location{}).Set("name", modifierName))
		fn.Set("modifiers", []*solidity.Node{inv})
	}
	return index(src, sourceUnit(src, nil, stateVar(t, src, "owner"), fn))
}

func TestAccessControlUnguardedWrite(t *testing.T) {
	idx := buildSetOwner(t, "", false)

	findings, err := (&accessControl{}).Analyze(context.Background(), idx)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "missing-access-control", findings[0].Kind)
	assert.Equal(t, model.SeverityHigh, findings[0].Severity)
}

func TestAccessControlModifierSuppresses(t *testing.T) {
	for _, mod := range []string{"onlyOwner", "onlyRole", "onlyAdmin", "onlyAuthorized", "authenticated", "restricted"} {
		idx := buildSetOwner(t, mod, false)
		findings, err := (&accessControl{}).Analyze(context.Background(), idx)
		require.NoError(t, err)
		assert.Empty(t, findings, "modifier %s must suppress the finding", mod)
	}
}

func TestAccessControlUnknownModifierStillFlags(t *testing.T) {
	idx := buildSetOwner(t, "whenNotPaused", false)
	findings, err := (&accessControl{}).Analyze(context.Background(), idx)
	require.NoError(t, err)
	assert.Len(t, findings, 1)
}

func TestAccessControlRequireGuardSuppresses(t *testing.T) {
	idx := buildSetOwner(t, "", true)
	findings, err := (&accessControl{}).Analyze(context.Background(), idx)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestAccessControlInternalFunctionsIgnored(t *testing.T) {
	src := `contract C {
    uint256 total;
    function bump() internal {
        total = 1;
    }
}`
	write := node("Assignment", loc(t, src, "total = 1")).
		Set("leftHandSide", identifier(t, src, "total"))
	fn := function(t, src, "function bump", "internal",
		node("ExpressionStatement", write.Loc).Set("expression", write))
	idx := index(src, sourceUnit(src, nil, stateVar(t, src, "total"), fn))

	findings, err := (&accessControl{}).Analyze(context.Background(), idx)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestAccessControlReadOnlyFunctionIgnored(t *testing.T) {
	src := `contract C {
    uint256 total;
    function get() public {
        uint256 x = 1;
    }
}`
	fn := function(t, src, "function get", "public")
	idx := index(src, sourceUnit(src, nil, stateVar(t, src, "total"), fn))

	findings, err := (&accessControl{}).Analyze(context.Background(), idx)
	require.NoError(t, err)
	assert.Empty(t, findings)
}
