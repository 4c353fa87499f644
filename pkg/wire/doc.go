// Package wire implements the request/response message encoding for the
// remote microscope protocol.
//
// Messages are CBOR maps with integer keys. Requests carry an operation
// (GET, SET or CALL) against a (subsystem, item) capability; responses
// carry a status code and a typed payload. Typed values are encoded
// through the Value union, which enforces the capability catalog's
// declared types: a tag mismatch is rejected with ErrMalformedValue
// rather than coerced.
//
// Image payloads are the one exception to the single-envelope rule: the
// pixel buffer travels as a raw binary segment appended after the CBOR
// envelope inside the same frame, described by a header record inside
// the envelope. The header's declared byte length is validated against
// the bytes actually present before an image is returned.
//
// Encoding is deterministic and round-trip stable: decoding an encoded
// value yields an equal value. Byte-stability across releases is not
// promised.
package wire
