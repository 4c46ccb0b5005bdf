package nsm

// AttestationDigest concatenates all PCR digests in slot order and mixes the
// result into a single digest summarizing the bank's state. It is a pure
// function of the current bank: repeated calls without an intervening
// extension return identical bytes.
func (s *Session) AttestationDigest() ([]byte, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	buf := make([]byte, 0, PCRSlots*DigestLen)
	for i := range s.pcrs {
		buf = append(buf, s.pcrs[i][:]...)
	}
	digest := mix(buf)

	out := make([]byte, DigestLen)
	copy(out, digest[:])
	return out, nil
}
