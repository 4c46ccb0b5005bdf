package nsm

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var moduleIDPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	session, err := NewSession()
	require.NoError(t, err)
	return session
}

func TestNewSessionInitialState(t *testing.T) {
	session := newTestSession(t)

	assert.False(t, session.IsClosed())

	id, err := session.ModuleID()
	require.NoError(t, err)
	assert.Regexp(t, moduleIDPattern, id)

	for slot := uint32(0); slot < PCRSlots; slot++ {
		digest, err := session.DescribePCR(slot)
		require.NoError(t, err)
		assert.Equal(t, make([]byte, DigestLen), digest, "pcr %d", slot)
	}

	flags, err := session.LockedFlags(PCRSlots)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, PCRSlots), flags)
}

func TestModuleIDsDiffer(t *testing.T) {
	first := newTestSession(t)
	second := newTestSession(t)

	firstID, err := first.ModuleID()
	require.NoError(t, err)
	secondID, err := second.ModuleID()
	require.NoError(t, err)
	assert.NotEqual(t, firstID, secondID)
}

func TestCloseIsIdempotent(t *testing.T) {
	session := newTestSession(t)

	require.NoError(t, session.Close())
	assert.True(t, session.IsClosed())
	require.NoError(t, session.Close())
	assert.True(t, session.IsClosed())
}

func TestClosedSessionShortCircuitsOperations(t *testing.T) {
	session := newTestSession(t)
	require.NoError(t, session.SetCertificate(0, []byte("cert")))
	require.NoError(t, session.Close())

	_, err := session.ModuleID()
	assert.ErrorIs(t, err, ErrClosed)
	_, err = session.DescribePCR(0)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = session.ExtendPCR(0, []byte("data"))
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, session.LockPCR(0), ErrClosed)
	assert.ErrorIs(t, session.LockPCRRange(4), ErrClosed)
	_, err = session.LockedFlags(PCRSlots)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, session.SetCertificate(0, []byte("cert")), ErrClosed)
	_, err = session.DescribeCertificate(0)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, session.RemoveCertificate(0), ErrClosed)
	_, err = session.AttestationDigest()
	assert.ErrorIs(t, err, ErrClosed)
	_, err = session.GetRandom(16)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestNilSessionReference(t *testing.T) {
	var session *Session

	assert.True(t, session.IsClosed())
	assert.ErrorIs(t, session.Close(), ErrClosed)

	_, err := session.ModuleID()
	assert.ErrorIs(t, err, ErrClosed)
	_, err = session.DescribePCR(0)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSessionEndToEnd(t *testing.T) {
	session := newTestSession(t)

	zero, err := session.DescribePCR(0)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, DigestLen), zero)

	extended, err := session.ExtendPCR(0, []byte("abc"))
	require.NoError(t, err)
	assert.NotEqual(t, zero, extended)

	require.NoError(t, session.LockPCR(0))

	_, err = session.ExtendPCR(0, []byte("def"))
	assert.ErrorIs(t, err, ErrLocked)
	current, err := session.DescribePCR(0)
	require.NoError(t, err)
	assert.Equal(t, extended, current)

	require.NoError(t, session.SetCertificate(2, []byte("CERTDATA")))
	cert, err := session.DescribeCertificate(2)
	require.NoError(t, err)
	assert.Equal(t, []byte("CERTDATA"), cert)
	assert.Len(t, cert, 8)

	require.NoError(t, session.RemoveCertificate(2))
	_, err = session.DescribeCertificate(2)
	assert.ErrorIs(t, err, ErrCertMissing)

	require.NoError(t, session.Close())
	_, err = session.DescribePCR(0)
	assert.ErrorIs(t, err, ErrClosed)
	require.NoError(t, session.Close())
}

func TestErrorCodes(t *testing.T) {
	assert.Equal(t, CodeOK, CodeOf(nil))
	assert.Equal(t, CodeInvalidSlot, CodeOf(ErrInvalidSlot))
	assert.Equal(t, CodeLocked, CodeOf(ErrLocked))
	assert.Equal(t, CodeInvalidLength, CodeOf(ErrInvalidLength))
	assert.Equal(t, CodeCertMissing, CodeOf(ErrCertMissing))
	assert.Equal(t, CodeNoMemory, CodeOf(ErrNoMemory))
	assert.Equal(t, CodeClosed, CodeOf(ErrClosed))
	assert.Equal(t, CodeUnknown, CodeOf(assert.AnError))

	// Wrapped errors must keep their code.
	session := newTestSession(t)
	_, err := session.DescribePCR(PCRSlots)
	assert.Equal(t, CodeInvalidSlot, CodeOf(err))
}
