package crypto_util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashKnownVectors(t *testing.T) {
	// Empty-input digests are fixed by each algorithm's specification.
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		CalculateSHA256(nil))
	assert.Equal(t,
		"c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470",
		CalculateKeccak256(nil))
	assert.Equal(t,
		"af1349b9f5f9a1a6a0404dee36dcc9499bcb25c9adc112b7cc9a93cae41f3262",
		CalculateBlake3(nil))
}

func TestHashLengthsAndDistinctness(t *testing.T) {
	input := []byte("hello world")

	sha := CalculateSHA256(input)
	keccak := CalculateKeccak256(input)
	blake := CalculateBlake3(input)

	assert.Len(t, sha, 64)
	assert.Len(t, keccak, 64)
	assert.Len(t, blake, 64)

	// Distinct algorithms, distinct digests over the same input.
	assert.NotEqual(t, sha, keccak)
	assert.NotEqual(t, sha, blake)
	assert.NotEqual(t, keccak, blake)
}
