package nsm

import "fmt"

// SetCertificate copies data into a certificate slot. Any buffer previously
// held by the slot is released and replaced; the session owns the copy.
func (s *Session) SetCertificate(slot uint32, data []byte) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	if slot >= CertificateSlots {
		return fmt.Errorf("certificate slot %d: %w", slot, ErrInvalidSlot)
	}
	if len(data) == 0 {
		return fmt.Errorf("certificate payload: %w", ErrInvalidLength)
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	s.certs[slot] = buf
	return nil
}

// DescribeCertificate returns a copy of the bytes stored in a certificate
// slot.
func (s *Session) DescribeCertificate(slot uint32) ([]byte, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	if slot >= CertificateSlots {
		return nil, fmt.Errorf("certificate slot %d: %w", slot, ErrInvalidSlot)
	}
	if s.certs[slot] == nil {
		return nil, fmt.Errorf("certificate slot %d: %w", slot, ErrCertMissing)
	}
	out := make([]byte, len(s.certs[slot]))
	copy(out, s.certs[slot])
	return out, nil
}

// RemoveCertificate releases a certificate slot's buffer and empties the
// slot.
func (s *Session) RemoveCertificate(slot uint32) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	if slot >= CertificateSlots {
		return fmt.Errorf("certificate slot %d: %w", slot, ErrInvalidSlot)
	}
	if s.certs[slot] == nil {
		return fmt.Errorf("certificate slot %d: %w", slot, ErrCertMissing)
	}
	s.certs[slot] = nil
	return nil
}
