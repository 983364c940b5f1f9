package solidity

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/1cbyc/view0x-sub000/internal/model"
)

// Parser turns raw Solidity source into a labeled node tree. The engine
// treats it as a collaborator; tests inject hand-built trees.
type Parser interface {
	Parse(ctx context.Context, source string) (*Node, error)
}

// ParserFunc adapts a function to the Parser interface.
type ParserFunc func(ctx context.Context, source string) (*Node, error)

func (f ParserFunc) Parse(ctx context.Context, source string) (*Node, error) {
	return f(ctx, source)
}

// SolcParser shells out to solc for a compact-JSON AST.
type SolcParser struct {
	SolcPath string
}

func NewSolcParser(solcPath string) *SolcParser {
	if solcPath == "" {
		solcPath = "solc"
	}
	return &SolcParser{SolcPath: solcPath}
}

func (p *SolcParser) Parse(ctx context.Context, source string) (*Node, error) {
	tmp, err := os.CreateTemp("", "contract-*.sol")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(source); err != nil {
		tmp.Close()
		return nil, err
	}
	tmp.Close()

	cmd := exec.CommandContext(ctx, p.SolcPath, "--ast-compact-json", tmp.Name())
	out, err := cmd.Output()
	if err != nil {
		detail := err.Error()
		if ee, ok := err.(*exec.ExitError); ok && len(ee.Stderr) > 0 {
			detail = strings.TrimSpace(string(ee.Stderr))
		}
		return nil, &model.ParseError{Detail: detail}
	}
	raw, err := extractASTJSON(out)
	if err != nil {
		return nil, err
	}
	return DecodeAST(raw), nil
}

// extractASTJSON pulls the JSON document out of solc's mixed output,
// which prefixes the AST with a header line per file.
func extractASTJSON(out []byte) (map[string]any, error) {
	s := string(out)
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return nil, &model.ParseError{Detail: "solc produced no AST output"}
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(s[start:]), &raw); err != nil {
		return nil, &model.ParseError{Detail: "malformed solc AST: " + err.Error()}
	}
	return raw, nil
}

// DecodeAST converts a solc compact-JSON node (generic maps) into the
// internal Node arena. Maps carrying a nodeType become child nodes;
// everything else is kept as a scalar attribute.
func DecodeAST(raw map[string]any) *Node {
	typ, _ := raw["nodeType"].(string)
	if typ == "" {
		typ, _ = raw["name"].(string)
	}
	n := NewNode(typ, decodeSrc(raw["src"]))
	for k, v := range raw {
		if k == "nodeType" || k == "src" {
			continue
		}
		n.Attrs[k] = decodeValue(v)
	}
	return n
}

func decodeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		if _, ok := t["nodeType"]; ok {
			return DecodeAST(t)
		}
		return t
	case []any:
		nodes := make([]*Node, 0, len(t))
		allNodes := true
		for _, e := range t {
			m, ok := e.(map[string]any)
			if !ok {
				allNodes = false
				break
			}
			if _, has := m["nodeType"]; !has {
				allNodes = false
				break
			}
			nodes = append(nodes, DecodeAST(m))
		}
		if allNodes && len(nodes) > 0 {
			return nodes
		}
		return t
	default:
		return v
	}
}

// decodeSrc parses solc's "start:length:file" location triple.
func decodeSrc(v any) Location {
	s, _ := v.(string)
	if s == "" {
		return Location{}
	}
	parts := strings.Split(s, ":")
	if len(parts) < 2 {
		return Location{}
	}
	start, err1 := strconv.Atoi(parts[0])
	length, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || start < 0 || length < 0 {
		return Location{}
	}
	return Location{Start: start, End: start + length}
}
