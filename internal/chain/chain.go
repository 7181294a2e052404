// Package chain builds and verifies the per-asset hash chain.
//
// Every asset's history starts from the well-known GenesisHash. Each block
// records the hash of its predecessor and a hash over its own contents, so any
// edit to a committed block is detectable via Verify.
//
// The default Hasher and Signer are mock primitives. They make the chain
// tamper-evident, not secure; swap in SHA256Hasher, BLAKE2bHasher or a real
// Signer without touching the state machine.
package chain

// GenesisHash is the previousHash of the first block of every asset chain.
const GenesisHash = "00000000000000000000000000000000"
