package verifier

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func samplePlotID() [32]byte {
	var id [32]byte
	for i := range id {
		id[i] = byte(i*13 + 7)
	}

	return id
}

func sampleChallenge(lastByte byte) [32]byte {
	var c [32]byte
	for i := range c {
		c[i] = byte(i * 3)
	}

	c[31] = lastByte

	return c
}

func TestValidateProof_RejectsWrongLength(t *testing.T) {
	proof := make(Proof, ProofSize-1)

	_, valid, err := ValidateProof(12, samplePlotID(), sampleChallenge(0), proof)
	require.ErrorIs(t, err, ErrInvalidValue)
	require.False(t, valid)
}

func TestValidateProof_RejectsXValueWiderThanK(t *testing.T) {
	k := uint8(10)
	proof := make(Proof, ProofSize)
	proof[0] = 1 << k // one bit too wide

	_, valid, err := ValidateProof(k, samplePlotID(), sampleChallenge(0), proof)
	require.ErrorIs(t, err, ErrInvalidValue)
	require.False(t, valid)
}

func TestValidateProof_RejectsNonMatchingProof(t *testing.T) {
	k := uint8(14)
	proof := make(Proof, ProofSize)

	for i := range proof {
		proof[i] = uint64(i) // arbitrary, essentially never forms a valid match chain
	}

	_, valid, err := ValidateProof(k, samplePlotID(), sampleChallenge(0), proof)
	require.NoError(t, err)
	require.False(t, valid)
}

func TestQualityString_IsDeterministic(t *testing.T) {
	k := uint8(14)
	proof := make(Proof, ProofSize)

	for i := range proof {
		proof[i] = uint64(i)
	}

	challenge := sampleChallenge(3)

	q1, err := QualityString(k, challenge, proof)
	require.NoError(t, err)

	q2, err := QualityString(k, challenge, proof)
	require.NoError(t, err)

	require.Equal(t, q1, q2)
	require.Len(t, q1, 32)
}

func TestQualityString_SelectsDifferentPairByLowChallengeBits(t *testing.T) {
	k := uint8(14)
	proof := make(Proof, ProofSize)

	for i := range proof {
		proof[i] = uint64(i * 37) // distinct values so every pair is unique
	}

	q0, err := QualityString(k, sampleChallenge(0), proof) // index 0
	require.NoError(t, err)

	q1, err := QualityString(k, sampleChallenge(1), proof) // index 1
	require.NoError(t, err)

	require.NotEqual(t, q0, q1)
}

func TestQualityString_RejectsWrongLength(t *testing.T) {
	_, err := QualityString(14, sampleChallenge(0), make(Proof, 3))
	require.ErrorIs(t, err, ErrInvalidValue)
}
