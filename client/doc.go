// Package client wraps a simulated NSM session in a typed, result-oriented
// API. Where the engine in package nsm deals in raw byte buffers and sentinel
// errors, this package returns structured values: per-register PCRValue
// records with their lock state, module Description metadata, and full
// AttestationDocument payloads assembled from the live register bank.
//
// Attestation documents carry a sha256 digest over the PCR bank plus any
// caller-supplied user data, public key, and nonce. The digest binds the
// document to the bank state at build time; it is still a simulation artifact
// with no cryptographic attestation value.
package client
