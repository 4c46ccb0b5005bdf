package client

import (
	"crypto/sha256"
	"encoding/json"
	"testing"

	"github.com/nitrosim/nsm-simulator/nsm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c, err := NewWithSession()
	require.NoError(t, err)
	return c
}

func TestDescribeAndExtendPCR(t *testing.T) {
	c := newTestClient(t)

	original, err := c.DescribePCR(0)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), original.Index)
	assert.Equal(t, make([]byte, nsm.DigestLen), original.Digest)
	assert.False(t, original.Locked)

	updated, err := c.ExtendPCR(0, []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, uint32(0), updated.Index)
	assert.NotEqual(t, original.Digest, updated.Digest)
	assert.False(t, updated.Locked)

	latest, err := c.DescribePCR(0)
	require.NoError(t, err)
	assert.Equal(t, updated.Digest, latest.Digest)
}

func TestLockingIsVisibleOnPCRValues(t *testing.T) {
	c := newTestClient(t)

	require.NoError(t, c.LockPCR(0))

	value, err := c.DescribePCR(0)
	require.NoError(t, err)
	assert.True(t, value.Locked)

	_, err = c.ExtendPCR(0, []byte("later"))
	assert.ErrorIs(t, err, nsm.ErrLocked)
}

func TestLockPCRsAffectsPrefix(t *testing.T) {
	c := newTestClient(t)

	require.NoError(t, c.LockPCRs(2))

	for slot, wantLocked := range map[uint32]bool{0: true, 1: true, 2: false} {
		value, err := c.DescribePCR(slot)
		require.NoError(t, err)
		assert.Equal(t, wantLocked, value.Locked, "pcr %d", slot)
	}
}

func TestCertificateLifecycle(t *testing.T) {
	c := newTestClient(t)
	cert := []byte("-----BEGIN CERTIFICATE-----\nFAKE\n-----END CERTIFICATE-----")

	require.NoError(t, c.SetCertificate(0, cert))

	stored, err := c.DescribeCertificate(0)
	require.NoError(t, err)
	assert.Equal(t, cert, stored)

	require.NoError(t, c.RemoveCertificate(0))
	_, err = c.DescribeCertificate(0)
	assert.ErrorIs(t, err, nsm.ErrCertMissing)
}

func TestAttestReturnsDocument(t *testing.T) {
	c := newTestClient(t)
	_, err := c.ExtendPCR(0, []byte("boot"))
	require.NoError(t, err)

	doc, err := c.Attest(AttestationRequest{UserData: []byte("payload"), Nonce: []byte("123")})
	require.NoError(t, err)

	moduleID, err := c.ModuleID()
	require.NoError(t, err)
	assert.Equal(t, moduleID, doc.ModuleID)
	assert.Positive(t, doc.Timestamp)
	assert.Equal(t, []byte("payload"), doc.UserData)
	assert.Equal(t, []byte("123"), doc.Nonce)
	assert.Len(t, doc.PCRs, nsm.PCRSlots)
	assert.Empty(t, doc.LockedPCRs)
	assert.Nil(t, doc.Certificate)

	// The document digest is sha256 over the bank then the bound fields.
	hasher := sha256.New()
	for slot := uint32(0); slot < nsm.PCRSlots; slot++ {
		hasher.Write(doc.PCRs[slot])
	}
	hasher.Write([]byte("payload"))
	hasher.Write([]byte("123"))
	assert.Equal(t, hasher.Sum(nil), doc.Digest)
}

func TestAttestBindsRequestFields(t *testing.T) {
	c := newTestClient(t)

	plain, err := c.Attest(AttestationRequest{})
	require.NoError(t, err)
	bound, err := c.Attest(AttestationRequest{UserData: []byte("payload")})
	require.NoError(t, err)
	assert.NotEqual(t, plain.Digest, bound.Digest)
}

func TestAttestIncludesFirstCertificate(t *testing.T) {
	c := newTestClient(t)
	require.NoError(t, c.SetCertificate(1, []byte("second slot")))
	require.NoError(t, c.SetCertificate(3, []byte("fourth slot")))

	doc, err := c.Attest(AttestationRequest{})
	require.NoError(t, err)
	assert.Equal(t, []byte("second slot"), doc.Certificate)
}

func TestAttestationDocumentJSONRoundTrip(t *testing.T) {
	c := newTestClient(t)
	require.NoError(t, c.LockPCR(4))

	doc, err := c.Attest(AttestationRequest{Nonce: []byte("n")})
	require.NoError(t, err)

	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	var decoded AttestationDocument
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, doc.ModuleID, decoded.ModuleID)
	assert.Equal(t, doc.Digest, decoded.Digest)
	assert.Equal(t, []uint32{4}, decoded.LockedPCRs)
}

func TestDescribeMetadata(t *testing.T) {
	c := newTestClient(t)
	require.NoError(t, c.LockPCR(1))
	require.NoError(t, c.SetCertificate(0, []byte("cert")))

	description, err := c.Describe()
	require.NoError(t, err)
	assert.NotEmpty(t, description.ModuleID)
	assert.Equal(t, nsm.PCRSlots, description.PCRSlots)
	assert.Equal(t, nsm.CertificateSlots, description.CertificateSlots)
	assert.Equal(t, []uint32{1}, description.LockedPCRs)
	assert.Equal(t, 1, description.Certificates)
}

func TestClosedClient(t *testing.T) {
	c := newTestClient(t)
	require.NoError(t, c.Close())

	assert.False(t, c.IsOpen())
	// Close stays callable.
	require.NoError(t, c.Close())

	_, err := c.DescribePCR(0)
	assert.ErrorIs(t, err, nsm.ErrClosed)
	_, err = c.Attest(AttestationRequest{})
	assert.ErrorIs(t, err, nsm.ErrClosed)
	_, err = c.Describe()
	assert.ErrorIs(t, err, nsm.ErrClosed)
	_, err = c.GetRandom(8)
	assert.ErrorIs(t, err, nsm.ErrClosed)
}
