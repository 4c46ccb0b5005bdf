package nsm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCertificateRoundTrip(t *testing.T) {
	session := newTestSession(t)
	cert := []byte("-----BEGIN CERTIFICATE-----\nFAKE\n-----END CERTIFICATE-----")

	require.NoError(t, session.SetCertificate(2, cert))

	stored, err := session.DescribeCertificate(2)
	require.NoError(t, err)
	assert.Equal(t, cert, stored)
	assert.Len(t, stored, len(cert))

	require.NoError(t, session.RemoveCertificate(2))

	_, err = session.DescribeCertificate(2)
	assert.ErrorIs(t, err, ErrCertMissing)
}

func TestSetCertificateCopiesPayload(t *testing.T) {
	session := newTestSession(t)

	payload := []byte("CERTDATA")
	require.NoError(t, session.SetCertificate(0, payload))

	// Mutating the caller's buffer must not leak into the stored copy.
	payload[0] = 'X'

	stored, err := session.DescribeCertificate(0)
	require.NoError(t, err)
	assert.Equal(t, []byte("CERTDATA"), stored)
}

func TestSetCertificateOverwritesSlot(t *testing.T) {
	session := newTestSession(t)

	require.NoError(t, session.SetCertificate(1, []byte("first")))
	require.NoError(t, session.SetCertificate(1, []byte("second")))

	stored, err := session.DescribeCertificate(1)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), stored)
}

func TestCertificateSlotValidation(t *testing.T) {
	session := newTestSession(t)

	assert.ErrorIs(t, session.SetCertificate(CertificateSlots, []byte("cert")), ErrInvalidSlot)
	_, err := session.DescribeCertificate(CertificateSlots)
	assert.ErrorIs(t, err, ErrInvalidSlot)
	assert.ErrorIs(t, session.RemoveCertificate(CertificateSlots), ErrInvalidSlot)
}

func TestSetCertificateRejectsEmptyPayload(t *testing.T) {
	session := newTestSession(t)
	assert.ErrorIs(t, session.SetCertificate(0, nil), ErrInvalidLength)
	assert.ErrorIs(t, session.SetCertificate(0, []byte{}), ErrInvalidLength)
}

func TestRemoveCertificateOnEmptySlot(t *testing.T) {
	session := newTestSession(t)
	assert.ErrorIs(t, session.RemoveCertificate(3), ErrCertMissing)
}
