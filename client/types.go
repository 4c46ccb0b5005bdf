package client

// PCRValue is the typed state of a single platform configuration register.
type PCRValue struct {
	Index  uint32 `json:"index"`
	Digest []byte `json:"digest"`
	Locked bool   `json:"locked"`
}

// AttestationRequest carries the caller-supplied fields bound into an
// attestation document. All fields are optional.
type AttestationRequest struct {
	UserData  []byte `json:"user_data,omitempty"`
	PublicKey []byte `json:"public_key,omitempty"`
	Nonce     []byte `json:"nonce,omitempty"`
}

// AttestationDocument is a snapshot of the session's register bank together
// with the request fields it was bound to. Digest is sha256 over all PCR
// digests in slot order followed by user data, public key, and nonce when
// present. Certificate is the first occupied certificate slot, if any.
type AttestationDocument struct {
	ModuleID    string            `json:"module_id"`
	Timestamp   int64             `json:"timestamp"`
	Digest      []byte            `json:"digest"`
	PCRs        map[uint32][]byte `json:"pcrs"`
	LockedPCRs  []uint32          `json:"locked_pcrs"`
	Certificate []byte            `json:"certificate,omitempty"`
	CABundle    []byte            `json:"cabundle,omitempty"`
	UserData    []byte            `json:"user_data,omitempty"`
	PublicKey   []byte            `json:"public_key,omitempty"`
	Nonce       []byte            `json:"nonce,omitempty"`
}

// Description is the module metadata record for a session.
type Description struct {
	ModuleID         string   `json:"module_id"`
	PCRSlots         int      `json:"pcr_slots"`
	CertificateSlots int      `json:"certificate_slots"`
	LockedPCRs       []uint32 `json:"locked_pcrs"`
	Certificates     int      `json:"certificates"`
}
