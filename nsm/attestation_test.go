package nsm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttestationDigestMatchesBankMix(t *testing.T) {
	session := newTestSession(t)
	_, err := session.ExtendPCR(0, []byte("boot"))
	require.NoError(t, err)
	_, err = session.ExtendPCR(7, []byte("kernel"))
	require.NoError(t, err)

	expected := make([]byte, 0, PCRSlots*DigestLen)
	for slot := uint32(0); slot < PCRSlots; slot++ {
		digest, err := session.DescribePCR(slot)
		require.NoError(t, err)
		expected = append(expected, digest...)
	}
	want := mix(expected)

	got, err := session.AttestationDigest()
	require.NoError(t, err)
	assert.Equal(t, want[:], got)
}

func TestAttestationDigestIsIdempotent(t *testing.T) {
	session := newTestSession(t)
	_, err := session.ExtendPCR(1, []byte("state"))
	require.NoError(t, err)

	first, err := session.AttestationDigest()
	require.NoError(t, err)
	second, err := session.AttestationDigest()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAttestationDigestTracksPCRMutation(t *testing.T) {
	session := newTestSession(t)

	before, err := session.AttestationDigest()
	require.NoError(t, err)

	_, err = session.ExtendPCR(12, []byte("new measurement"))
	require.NoError(t, err)

	after, err := session.AttestationDigest()
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}
