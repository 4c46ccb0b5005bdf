package nsm

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// The generator behind GetRandom is process-wide, shared by every session,
// and seeded from the wall clock on first use — exactly once, regardless of
// which caller gets there first. Unlike sessions, the generator can be
// reached from several sessions at once, so reads are serialized here.
//
// It is explicitly non-cryptographic and unsuitable as a security primitive.
var (
	rngOnce sync.Once
	rngMu   sync.Mutex
	rng     *rand.Rand
)

func randomBytes(out []byte) {
	rngOnce.Do(func() {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	})
	rngMu.Lock()
	defer rngMu.Unlock()
	rng.Read(out)
}

// GetRandom fills and returns length pseudo-random bytes from the
// process-wide generator. length must be greater than zero.
func (s *Session) GetRandom(length int) ([]byte, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	if length <= 0 {
		return nil, fmt.Errorf("random length %d: %w", length, ErrInvalidLength)
	}
	out := make([]byte, length)
	randomBytes(out)
	return out, nil
}
