// Package candid owns the argument payload codec spoken by the canister.
//
// Ownership boundary:
// - fixed-layout encoders for the event and RSVP input records
// - single text argument encoder
// - generic decoder producing an untyped value tree
// - projections from value trees onto rsvp records
//
// The encoders only know the shapes listed in schema. A canister interface
// that grows new argument records needs a general encoder (variable-length
// integers, arbitrary field counts, hashed field names) rather than another
// fixed layout here.
package candid
