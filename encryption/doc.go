// Package encryption seals byte payloads with an AEAD cipher. The ledger's
// blob store uses it to encrypt search snapshots at rest.
//
// Keys are arbitrary strings hashed to 32 bytes with SHA-256. Sealed
// payloads are the random nonce followed by the ciphertext.
package encryption
