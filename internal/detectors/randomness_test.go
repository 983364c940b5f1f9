package detectors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1cbyc/view0x-sub000/internal/model"
	"github.com/1cbyc/view0x-sub000/internal/solidity"
)

func blockTimestamp(t *testing.T, src string) *solidity.Node {
	return node("MemberAccess", loc(t, src, "block.timestamp")).
		Set("memberName", "timestamp").
		Set("expression", identifier(t, src, "block"))
}

func TestWeakRandomnessHashedBlockFieldIsHigh(t *testing.T) {
	src := `contract Lottery {
    function winner() public {
        uint256 r = uint256(keccak256(abi.encodePacked(block.timestamp, msg.sender)));
    }
}`
	packed := node("FunctionCall", loc(t, src, "abi.encodePacked(block.timestamp, msg.sender)")).
		Set("expression", node("MemberAccess", loc(t, src, "abi.encodePacked")).
			Set("memberName", "encodePacked").
			Set("expression", identifier(t, src, "abi"))).
		Set("arguments", []*solidity.Node{blockTimestamp(t, src), msgSender(t, src)})
	keccak := node("FunctionCall", loc(t, src, "keccak256(abi.encodePacked(block.timestamp, msg.sender))")).
		Set("expression", node("Identifier", solidity.Location{}).Set("name", "keccak256")).
		Set("arguments", []*solidity.Node{packed})
	decl := node("VariableDeclarationStatement", loc(t, src, "uint256 r")).
		Set("initialValue", keccak)
	fn := function(t, src, "function winner", "public", decl)
	idx := index(src, sourceUnit(src, nil, fn))

	findings, err := (&weakRandomness{}).Analyze(context.Background(), idx)
	require.NoError(t, err)
	require.Len(t, findings, 1, "nested hash chain reports once, at the outer call")

	f := findings[0]
	assert.Equal(t, "weak-randomness", f.Kind)
	assert.Equal(t, model.SeverityHigh, f.Severity)
	assert.Equal(t, keccak.Loc.Start, f.StartOffset)
}

func TestWeakRandomnessBareBlockFieldIsMedium(t *testing.T) {
	src := `contract C {
    function now_() public {
        uint256 ts = block.timestamp;
    }
}`
	decl := node("VariableDeclarationStatement", loc(t, src, "uint256 ts")).
		Set("initialValue", blockTimestamp(t, src))
	fn := function(t, src, "function now_", "public", decl)
	idx := index(src, sourceUnit(src, nil, fn))

	findings, err := (&weakRandomness{}).Analyze(context.Background(), idx)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, model.SeverityMedium, findings[0].Severity)
}

func TestWeakRandomnessBlockhashAndNow(t *testing.T) {
	src := `contract C {
    function f() public {
        bytes32 h = blockhash(1);
        uint256 n = now;
    }
}`
	bh := node("FunctionCall", loc(t, src, "blockhash(1)")).
		Set("expression", node("Identifier", solidity.Location{}).Set("name", "blockhash"))
	nowIdent := identifier(t, src, "now")
	fn := function(t, src, "function f", "public",
		node("VariableDeclarationStatement", bh.Loc).Set("initialValue", bh),
		node("VariableDeclarationStatement", nowIdent.Loc).Set("initialValue", nowIdent))
	idx := index(src, sourceUnit(src, nil, fn))

	findings, err := (&weakRandomness{}).Analyze(context.Background(), idx)
	require.NoError(t, err)
	assert.Len(t, findings, 2)
	for _, f := range findings {
		assert.Equal(t, model.SeverityMedium, f.Severity)
	}
}

func TestWeakRandomnessCleanHashIsSilent(t *testing.T) {
	src := `contract C {
    function f() public {
        bytes32 h = keccak256(abi.encodePacked(msg.sender));
    }
}`
	packed := node("FunctionCall", loc(t, src, "abi.encodePacked(msg.sender)")).
		Set("expression", node("MemberAccess", loc(t, src, "abi.encodePacked")).
			Set("memberName", "encodePacked").
			Set("expression", identifier(t, src, "abi"))).
		Set("arguments", []*solidity.Node{msgSender(t, src)})
	keccak := node("FunctionCall", loc(t, src, "keccak256(abi.encodePacked(msg.sender))")).
		Set("expression", node("Identifier", solidity.Location{}).Set("name", "keccak256")).
		Set("arguments", []*solidity.Node{packed})
	fn := function(t, src, "function f", "public",
		node("VariableDeclarationStatement", keccak.Loc).Set("initialValue", keccak))
	idx := index(src, sourceUnit(src, nil, fn))

	findings, err := (&weakRandomness{}).Analyze(context.Background(), idx)
	require.NoError(t, err)
	assert.Empty(t, findings)
}
