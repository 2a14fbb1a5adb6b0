// Package verifier derives and compares password verification hashes.
//
// A verification hash is BLAKE2b-512, keyed with a server-wide pepper, over
// the Argon2id derivation of the password and the per-user salt:
//
//	hash = BLAKE2b-512(key=pepper, Argon2id(password, salt, params))
//
// Derivation is deterministic for a fixed (pepper, params, password, salt),
// so a stored hash can be recomputed and compared with Equal, which runs in
// constant time with respect to the hash contents.
package verifier
