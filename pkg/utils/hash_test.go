package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashPartsIsStable(t *testing.T) {
	assert.Equal(t, HashParts("fa", "general", "علی"), HashParts("fa", "general", "علی"))
	assert.Len(t, HashParts("x"), 64)
}

func TestHashPartsSeparatesBoundaries(t *testing.T) {
	assert.NotEqual(t, HashParts("ab", "c"), HashParts("a", "bc"))
	assert.NotEqual(t, HashParts("a"), HashParts("a", ""))
}
