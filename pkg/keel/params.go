package keel

import (
	"strconv"

	"github.com/google/uuid"
)

// ParamParser converts a raw path parameter into a typed value.
type ParamParser func(c Context, raw string) (any, error)

// ParserRegistry holds the parsers available for typed route parameters.
type ParserRegistry struct {
	parsers map[string]ParamParser
	aliases map[string]string
}

// NewParserRegistry creates a registry preloaded with the builtin parsers.
func NewParserRegistry() *ParserRegistry {
	r := &ParserRegistry{
		parsers: make(map[string]ParamParser),
		aliases: map[string]string{
			"UUID":   "uuid",
			"float":  "float64",
			"double": "float64",
		},
	}
	r.parsers["string"] = parseString
	r.parsers["int"] = parseInt
	r.parsers["float64"] = parseFloat64
	r.parsers["float32"] = parseFloat32
	r.parsers["uuid"] = parseUUID
	return r
}

// Register adds a custom parser for a type name. Registering over an
// existing name replaces it.
func (r *ParserRegistry) Register(typeName string, p ParamParser) {
	r.parsers[typeName] = p
}

// Get returns the parser for a type name, resolving aliases first.
func (r *ParserRegistry) Get(typeName string) (ParamParser, bool) {
	if actual, ok := r.aliases[typeName]; ok {
		typeName = actual
	}
	p, ok := r.parsers[typeName]
	return p, ok
}

// Has reports whether a type name, or one of its aliases, has a parser.
func (r *ParserRegistry) Has(typeName string) bool {
	_, ok := r.Get(typeName)
	return ok
}

func parseString(_ Context, raw string) (any, error) {
	return raw, nil
}

func parseInt(_ Context, raw string) (any, error) {
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func parseFloat64(_ Context, raw string) (any, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func parseFloat32(_ Context, raw string) (any, error) {
	v, err := strconv.ParseFloat(raw, 32)
	if err != nil {
		return nil, err
	}
	return float32(v), nil
}

func parseUUID(_ Context, raw string) (any, error) {
	v, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return v, nil
}
