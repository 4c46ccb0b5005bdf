package nsm

import "fmt"

// DescribePCR returns a copy of the digest currently held by a PCR slot.
func (s *Session) DescribePCR(slot uint32) ([]byte, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	if slot >= PCRSlots {
		return nil, fmt.Errorf("pcr slot %d: %w", slot, ErrInvalidSlot)
	}
	out := make([]byte, DigestLen)
	copy(out, s.pcrs[slot][:])
	return out, nil
}

// ExtendPCR folds data into a PCR slot's digest and returns the new digest.
// The new digest is mix(old digest || data). On any failure the slot is left
// untouched.
func (s *Session) ExtendPCR(slot uint32, data []byte) ([]byte, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	if slot >= PCRSlots {
		return nil, fmt.Errorf("pcr slot %d: %w", slot, ErrInvalidSlot)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("extend data: %w", ErrInvalidLength)
	}
	if s.locks[slot] {
		return nil, fmt.Errorf("pcr slot %d: %w", slot, ErrLocked)
	}

	buf := make([]byte, 0, DigestLen+len(data))
	buf = append(buf, s.pcrs[slot][:]...)
	buf = append(buf, data...)
	s.pcrs[slot] = mix(buf)

	out := make([]byte, DigestLen)
	copy(out, s.pcrs[slot][:])
	return out, nil
}

// LockPCR sets a slot's lock flag, making the slot immune to further
// extension for the session's remaining lifetime. Locking an already-locked
// slot succeeds and is a no-op.
func (s *Session) LockPCR(slot uint32) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	if slot >= PCRSlots {
		return fmt.Errorf("pcr slot %d: %w", slot, ErrInvalidSlot)
	}
	s.locks[slot] = true
	return nil
}

// LockPCRRange locks every slot below limit. Limits beyond the bank size are
// clamped to it, never an error.
func (s *Session) LockPCRRange(limit uint32) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	if limit > PCRSlots {
		limit = PCRSlots
	}
	for i := uint32(0); i < limit; i++ {
		s.locks[i] = true
	}
	return nil
}

// LockedFlags returns length flag bytes. The first min(length, PCRSlots)
// entries mirror the lock flags in slot order (1 for locked); any remainder
// is zero-filled.
func (s *Session) LockedFlags(length int) ([]byte, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	if length < 0 {
		length = 0
	}
	out := make([]byte, length)
	n := length
	if n > PCRSlots {
		n = PCRSlots
	}
	for i := 0; i < n; i++ {
		if s.locks[i] {
			out[i] = 1
		}
	}
	return out, nil
}

// mix is the simulator's deterministic digest primitive, reproduced
// byte-for-byte from the original device model so existing fixtures keep
// their values. It is not a cryptographic hash: output byte i folds input
// bytes i, i+32, i+64, ... with a rotate-left-5/xor accumulator seeded at
// 0x42+i*17, then xors in the input length.
func mix(data []byte) [DigestLen]byte {
	var out [DigestLen]byte
	for i := 0; i < DigestLen; i++ {
		v := byte(0x42 + i*17)
		for j := i; j < len(data); j += DigestLen {
			v = v<<5 | v>>3
			v ^= data[j]
		}
		out[i] = v ^ byte(len(data))
	}
	return out
}
