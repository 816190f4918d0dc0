package keel

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinParsers(t *testing.T) {
	reg := NewParserRegistry()
	c := newTestContext()

	parse := func(typeName, raw string) (any, error) {
		p, ok := reg.Get(typeName)
		require.True(t, ok, "no parser for %q", typeName)
		return p(c, raw)
	}

	v, err := parse("int", "42")
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	_, err = parse("int", "forty-two")
	assert.Error(t, err)

	v, err = parse("float64", "3.5")
	require.NoError(t, err)
	assert.Equal(t, 3.5, v)

	v, err = parse("float32", "2.25")
	require.NoError(t, err)
	assert.Equal(t, float32(2.25), v)

	v, err = parse("string", "anything")
	require.NoError(t, err)
	assert.Equal(t, "anything", v)

	id := uuid.NewString()
	v, err = parse("uuid", id)
	require.NoError(t, err)
	assert.Equal(t, id, v.(uuid.UUID).String())

	_, err = parse("uuid", "not-a-uuid")
	assert.Error(t, err)
}

func TestParserAliases(t *testing.T) {
	reg := NewParserRegistry()
	for _, alias := range []string{"UUID", "float", "double"} {
		assert.True(t, reg.Has(alias), "alias %q", alias)
	}
	assert.False(t, reg.Has("complex128"))
}

func TestParserRegisterCustom(t *testing.T) {
	reg := NewParserRegistry()
	reg.Register("upper", func(_ Context, raw string) (any, error) {
		return strings.ToUpper(raw), nil
	})

	p, ok := reg.Get("upper")
	require.True(t, ok)
	v, err := p(newTestContext(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "ABC", v)
}
