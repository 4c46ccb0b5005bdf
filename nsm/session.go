package nsm

import "encoding/hex"

const (
	// PCRSlots is the number of platform configuration registers in the bank.
	PCRSlots = 32

	// DigestLen is the byte length of every PCR digest and of the attestation
	// digest computed over the bank.
	DigestLen = 32

	// CertificateSlots is the number of certificate storage slots.
	CertificateSlots = 4

	// ModuleIDLen is the character length of a session's module identifier.
	ModuleIDLen = 32
)

// Session is one simulated NSM device session: a module identifier fixed at
// creation, a bank of PCRSlots registers with per-slot lock flags, and
// CertificateSlots opaque certificate buffers.
//
// All methods tolerate a nil receiver, which models a reference to a session
// that was never created: queries report it as closed and every other
// operation fails with ErrClosed.
type Session struct {
	moduleID string
	pcrs     [PCRSlots][DigestLen]byte
	locks    [PCRSlots]bool
	certs    [CertificateSlots][]byte
	closed   bool
}

// NewSession allocates a fresh open session: a newly generated module
// identifier, an all-zero PCR bank with every slot unlocked, and empty
// certificate slots.
func NewSession() (*Session, error) {
	raw := make([]byte, ModuleIDLen/2)
	randomBytes(raw)
	return &Session{moduleID: hex.EncodeToString(raw)}, nil
}

// Close marks the session closed and releases every certificate buffer. It is
// idempotent: closing an already-closed session succeeds. Only a nil session
// reference fails, with ErrClosed.
func (s *Session) Close() error {
	if s == nil {
		return ErrClosed
	}
	for i := range s.certs {
		s.certs[i] = nil
	}
	s.closed = true
	return nil
}

// IsClosed reports whether the session can no longer serve operations. A nil
// reference counts as closed. IsClosed never fails.
func (s *Session) IsClosed() bool {
	return s == nil || s.closed
}

// ModuleID returns the session's immutable module identifier: ModuleIDLen
// lowercase hexadecimal characters.
func (s *Session) ModuleID() (string, error) {
	if err := s.ensureOpen(); err != nil {
		return "", err
	}
	return s.moduleID, nil
}

func (s *Session) ensureOpen() error {
	if s == nil || s.closed {
		return ErrClosed
	}
	return nil
}
