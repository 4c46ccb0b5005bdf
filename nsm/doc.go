// Package nsm implements a software stand-in for the Nitro Secure Module
// device exposed to enclaves. It simulates the stateful parts of the device
// protocol — platform configuration registers (PCRs), certificate slots, an
// attestation digest over the register bank, and a byte-fill random service —
// with the exact mutation and error semantics of the real module.
//
// The simulator exists for development and logic-level testing only. Its
// digest primitive is deliberately non-cryptographic and its random generator
// is seeded from the wall clock; nothing in this package is suitable as a
// security mechanism.
//
// A Session is exclusively owned by one logical caller and performs no
// internal locking. Callers that share a session across goroutines must
// serialize access themselves, for example behind the HTTP handler's mutex in
// api/nsmhandler.
package nsm
