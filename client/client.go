package client

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/nitrosim/nsm-simulator/nsm"
)

// Client turns the raw engine operations of a single *nsm.Session into typed
// results. It adds no synchronization of its own: like the session it wraps,
// a Client belongs to one logical caller at a time.
type Client struct {
	session *nsm.Session
}

// New wraps an existing session.
func New(session *nsm.Session) *Client {
	return &Client{session: session}
}

// NewWithSession creates a fresh session and wraps it.
func NewWithSession() (*Client, error) {
	session, err := nsm.NewSession()
	if err != nil {
		return nil, fmt.Errorf("could not create nsm session: %w", err)
	}
	return New(session), nil
}

// Session exposes the underlying engine session.
func (c *Client) Session() *nsm.Session {
	return c.session
}

// IsOpen reports whether the wrapped session still serves operations.
func (c *Client) IsOpen() bool {
	return !c.session.IsClosed()
}

// Close closes the wrapped session. Idempotent.
func (c *Client) Close() error {
	return c.session.Close()
}

// ModuleID returns the session's module identifier.
func (c *Client) ModuleID() (string, error) {
	return c.session.ModuleID()
}

// GetRandom returns length pseudo-random bytes from the module's generator.
func (c *Client) GetRandom(length int) ([]byte, error) {
	return c.session.GetRandom(length)
}

// DescribePCR returns the typed state of one register, including its lock
// flag.
func (c *Client) DescribePCR(slot uint32) (PCRValue, error) {
	digest, err := c.session.DescribePCR(slot)
	if err != nil {
		return PCRValue{}, err
	}
	locked, err := c.slotLocked(slot)
	if err != nil {
		return PCRValue{}, err
	}
	return PCRValue{Index: slot, Digest: digest, Locked: locked}, nil
}

// ExtendPCR folds data into a register and returns its new typed state.
func (c *Client) ExtendPCR(slot uint32, data []byte) (PCRValue, error) {
	digest, err := c.session.ExtendPCR(slot, data)
	if err != nil {
		return PCRValue{}, err
	}
	locked, err := c.slotLocked(slot)
	if err != nil {
		return PCRValue{}, err
	}
	return PCRValue{Index: slot, Digest: digest, Locked: locked}, nil
}

// LockPCR locks a single register.
func (c *Client) LockPCR(slot uint32) error {
	return c.session.LockPCR(slot)
}

// LockPCRs locks every register below limit; limits beyond the bank are
// clamped.
func (c *Client) LockPCRs(limit uint32) error {
	return c.session.LockPCRRange(limit)
}

// SetCertificate stores an opaque certificate blob in a slot.
func (c *Client) SetCertificate(slot uint32, certificate []byte) error {
	return c.session.SetCertificate(slot, certificate)
}

// DescribeCertificate returns the blob stored in a certificate slot.
func (c *Client) DescribeCertificate(slot uint32) ([]byte, error) {
	return c.session.DescribeCertificate(slot)
}

// RemoveCertificate empties a certificate slot.
func (c *Client) RemoveCertificate(slot uint32) error {
	return c.session.RemoveCertificate(slot)
}

// BankDigest returns the engine's attestation digest over the whole register
// bank.
func (c *Client) BankDigest() ([]byte, error) {
	return c.session.AttestationDigest()
}

// Attest builds an attestation document over the current register bank,
// binding in the request's user data, public key, and nonce.
func (c *Client) Attest(req AttestationRequest) (*AttestationDocument, error) {
	moduleID, err := c.session.ModuleID()
	if err != nil {
		return nil, err
	}

	pcrs := make(map[uint32][]byte, nsm.PCRSlots)
	hasher := sha256.New()
	for slot := uint32(0); slot < nsm.PCRSlots; slot++ {
		digest, err := c.session.DescribePCR(slot)
		if err != nil {
			return nil, fmt.Errorf("describing pcr %d: %w", slot, err)
		}
		pcrs[slot] = digest
		hasher.Write(digest)
	}
	for _, extra := range [][]byte{req.UserData, req.PublicKey, req.Nonce} {
		if len(extra) > 0 {
			hasher.Write(extra)
		}
	}

	locked, err := c.lockedSlots()
	if err != nil {
		return nil, err
	}

	certificate, err := c.firstCertificate()
	if err != nil {
		return nil, err
	}

	return &AttestationDocument{
		ModuleID:    moduleID,
		Timestamp:   time.Now().Unix(),
		Digest:      hasher.Sum(nil),
		PCRs:        pcrs,
		LockedPCRs:  locked,
		Certificate: certificate,
		UserData:    req.UserData,
		PublicKey:   req.PublicKey,
		Nonce:       req.Nonce,
	}, nil
}

// Describe returns the module metadata record: identifier, slot counts,
// locked registers, and how many certificate slots are occupied.
func (c *Client) Describe() (Description, error) {
	moduleID, err := c.session.ModuleID()
	if err != nil {
		return Description{}, err
	}

	locked, err := c.lockedSlots()
	if err != nil {
		return Description{}, err
	}

	certificates := 0
	for slot := uint32(0); slot < nsm.CertificateSlots; slot++ {
		_, err := c.session.DescribeCertificate(slot)
		if errors.Is(err, nsm.ErrCertMissing) {
			continue
		}
		if err != nil {
			return Description{}, err
		}
		certificates++
	}

	return Description{
		ModuleID:         moduleID,
		PCRSlots:         nsm.PCRSlots,
		CertificateSlots: nsm.CertificateSlots,
		LockedPCRs:       locked,
		Certificates:     certificates,
	}, nil
}

func (c *Client) slotLocked(slot uint32) (bool, error) {
	flags, err := c.session.LockedFlags(nsm.PCRSlots)
	if err != nil {
		return false, err
	}
	return flags[slot] != 0, nil
}

func (c *Client) lockedSlots() ([]uint32, error) {
	flags, err := c.session.LockedFlags(nsm.PCRSlots)
	if err != nil {
		return nil, err
	}
	locked := []uint32{}
	for slot, flag := range flags {
		if flag != 0 {
			locked = append(locked, uint32(slot))
		}
	}
	return locked, nil
}

func (c *Client) firstCertificate() ([]byte, error) {
	for slot := uint32(0); slot < nsm.CertificateSlots; slot++ {
		certificate, err := c.session.DescribeCertificate(slot)
		if err == nil {
			return certificate, nil
		}
		if errors.Is(err, nsm.ErrCertMissing) {
			continue
		}
		return nil, err
	}
	return nil, nil
}
