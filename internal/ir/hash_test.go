package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadHashDeterminism(t *testing.T) {
	h1 := PayloadHash("x^2 * x^3")
	h2 := PayloadHash("x^2 * x^3")

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64, "SHA-256 hex is 64 characters")
	assert.NotEqual(t, h1, PayloadHash("x^2 * x^4"))
}

func TestTraceHashIncludesHistory(t *testing.T) {
	viaOne := NewValue("a").Then("rs", "r1", "z")
	viaTwo := NewValue("b").Then("rs", "r2", "z")

	h1, err := TraceHash(viaOne)
	require.NoError(t, err)
	h2, err := TraceHash(viaTwo)
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2, "same payload, different provenance")
	assert.Equal(t, h1, MustTraceHash(NewValue("a").Then("rs", "r1", "z")))
}

func TestDomainSeparation(t *testing.T) {
	// Same bytes under different domains must not collide.
	assert.NotEqual(t,
		hashWithDomain(DomainPayload, []byte("x")),
		hashWithDomain(DomainTrace, []byte("x")))
}
