package keel

// PartType is the kind of one route path part.
type PartType int

const (
	StaticPart PartType = iota
	ParameterPart
	WildcardPart
)

// Part is a single parsed segment of a route path.
type Part struct {
	Type PartType

	// Value is the literal text for static parts, the parameter name for
	// parameter parts, and "*" for the wildcard.
	Value string

	// ParamType is the declared parameter type ("int", "uuid", ...), empty
	// for untyped parameters.
	ParamType string
}

// Path is a route path in keel syntax. Parameters are declared inline as
// {name:type} or {name}, wildcards as {*}:
//
//	/users/{id:int}/files/{*}
//
// Adapters convert parsed parts into their engine's own syntax.
type Path string

// Raw returns the original path text.
func (p Path) Raw() string {
	return string(p)
}

// Parts parses the path into its static, parameter, and wildcard parts.
func (p Path) Parts() ([]Part, error) {
	return parsePath(string(p))
}

// ParamTypes returns the declared parameter name to type mapping. Untyped
// parameters default to "string".
func (p Path) ParamTypes() (map[string]string, error) {
	parts, err := p.Parts()
	if err != nil {
		return nil, err
	}
	types := make(map[string]string)
	for _, part := range parts {
		if part.Type != ParameterPart {
			continue
		}
		t := part.ParamType
		if t == "" {
			t = "string"
		}
		types[part.Value] = t
	}
	return types, nil
}

// Validate checks the path syntax without materializing parts for callers
// that only need the error.
func (p Path) Validate() error {
	_, err := p.Parts()
	return err
}

// JoinPath concatenates route prefixes, normalizing slashes so that every
// non-empty segment contributes exactly one leading slash. Prefixes compose
// by concatenation, never by replacement.
func JoinPath(segments ...string) string {
	out := ""
	for _, seg := range segments {
		seg = trimSlashes(seg)
		if seg == "" {
			continue
		}
		out += "/" + seg
	}
	if out == "" {
		return "/"
	}
	return out
}

func trimSlashes(s string) string {
	for len(s) > 0 && s[0] == '/' {
		s = s[1:]
	}
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}
