package keel

import (
	"fmt"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// The path DSL is small enough that a stateful lexer with two states covers
// it: everything outside braces is static text, everything inside is a
// parameter declaration.
var pathLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{Name: "LBrace", Pattern: `\{`, Action: lexer.Push("Param")},
		{Name: "Static", Pattern: `[^{}]+`},
	},
	"Param": {
		{Name: "RBrace", Pattern: `\}`, Action: lexer.Pop()},
		{Name: "Star", Pattern: `\*`},
		{Name: "Colon", Pattern: `:`},
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_.]*`},
	},
})

type pathAST struct {
	Parts []pathPartAST `parser:"@@*"`
}

type pathPartAST struct {
	Param  *pathParamAST `parser:"@@"`
	Static string        `parser:"| @Static"`
}

type pathParamAST struct {
	Wildcard bool   `parser:"LBrace ( @Star"`
	Name     string `parser:"| @Ident"`
	Type     string `parser:"( Colon @Ident )? ) RBrace"`
}

var pathParser = participle.MustBuild[pathAST](
	participle.Lexer(pathLexer),
)

// parsePath parses keel path syntax into parts. Malformed parameter syntax,
// including mismatched braces, is reported as an error naming the path.
func parsePath(path string) ([]Part, error) {
	if path == "" {
		return nil, nil
	}
	ast, err := pathParser.ParseString("", path)
	if err != nil {
		return nil, fmt.Errorf("invalid route path %q: %w", path, err)
	}
	parts := make([]Part, 0, len(ast.Parts))
	for _, p := range ast.Parts {
		switch {
		case p.Param != nil && p.Param.Wildcard:
			parts = append(parts, Part{Type: WildcardPart, Value: "*"})
		case p.Param != nil:
			parts = append(parts, Part{
				Type:      ParameterPart,
				Value:     p.Param.Name,
				ParamType: p.Param.Type,
			})
		default:
			parts = append(parts, Part{Type: StaticPart, Value: p.Static})
		}
	}
	return parts, nil
}
