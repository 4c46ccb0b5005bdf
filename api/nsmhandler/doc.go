// Package nsmhandler exposes a simulated NSM session over HTTP.
//
// The handler binds the full device operation surface — module description,
// random bytes, PCR describe/extend/lock, certificate slots, the bank digest,
// and attestation documents — onto a chi router, and maps the engine's error
// taxonomy onto HTTP statuses. The numeric device code travels in the
// X-NSM-Error-Code response header so remote callers keep the exact taxonomy.
//
// The engine performs no locking of its own; the handler's mutex is the
// mutual exclusion boundary for the session it serves. Handler and Client are
// a matched pair: Client speaks the same routes and translates error
// responses back into the nsm sentinel errors.
package nsmhandler
