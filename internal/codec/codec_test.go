package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalSortsKeys(t *testing.T) {
	obj := Object{
		"b": I(2),
		"a": I(1),
		"c": I(3),
	}
	out, err := Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"b":2,"c":3}`, string(out))
}

func TestMarshalNoWhitespace(t *testing.T) {
	obj := Object{
		"arr": Array{I(1), S("x"), B(true)},
	}
	out, err := Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"arr":[1,"x",true]}`, string(out))
}

func TestMarshalRejectsNull(t *testing.T) {
	_, err := Marshal(Null{})
	assert.Error(t, err)
}

func TestMarshalRejectsFloat(t *testing.T) {
	_, err := MarshalAny(3.14)
	assert.Error(t, err)
}

func TestMarshalDeterministic(t *testing.T) {
	obj := Object{"x": I(1), "y": S("hello")}
	out1, err := Marshal(obj)
	require.NoError(t, err)
	out2, err := Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, out1, out2)
}

func TestHashCanonicalStable(t *testing.T) {
	h1, err := HashCanonical(Object{"a": I(1), "b": S("x")})
	require.NoError(t, err)
	h2, err := HashCanonical(Object{"b": S("x"), "a": I(1)})
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}

func TestMarshalNoHTMLEscaping(t *testing.T) {
	out, err := Marshal(S("<a>&</a>"))
	require.NoError(t, err)
	assert.Equal(t, `"<a>&</a>"`, string(out))
}

func TestMarshalNFCNormalizesStrings(t *testing.T) {
	// "e" + combining acute accent (NFD) should canonicalize the same as
	// the precomposed "é" (NFC).
	decomposed := "é"
	precomposed := "é"
	out1, err := Marshal(S(decomposed))
	require.NoError(t, err)
	out2, err := Marshal(S(precomposed))
	require.NoError(t, err)
	assert.Equal(t, out1, out2)
}
