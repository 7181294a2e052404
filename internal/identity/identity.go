// Package identity is the ledger's stand-in membership service.
//
// It provides:
//   - LoadOrCreateKey: loads or creates the RSA signing key on disk
//   - TokenIssuer:     issues and verifies RS256 role tokens
//   - JWKSHandler:     serves the verification key as a JSON Web Key Set
//   - RequireRole:     Gin middleware enforcing a Bearer role token
//   - OptionalRole:    Gin middleware that reads a role token when present
package identity
