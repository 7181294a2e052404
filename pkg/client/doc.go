// Package client is the Go SDK for the provenance ledger daemon.
//
// # Open mode
//
// When the daemon runs without identity tokens the acting role travels with
// each submission:
//
//	c, _ := client.New("http://localhost:8080")
//	txID, err := c.SubmitTransaction(ctx, ledger.RoleSupplier, "createAsset", map[string]string{
//	    "id": "A1", "name": "Apples", "category": "Fruit",
//	    "origin": "Valley", "harvestDate": "2024-01-01",
//	})
//
// # Role tokens
//
// With identity enabled, WithAutoToken makes the client enrol for the role of
// each submission and cache the token until 60 seconds before expiry:
//
//	c, _ := client.New(baseURL, client.WithAutoToken())
//
// A token obtained elsewhere can be attached with WithBearerToken; it is never
// refreshed.
//
// # Errors
//
// Ledger rejections are returned as *APIError, which matches the ledger
// sentinels under errors.Is:
//
//	_, err := c.QueryAsset(ctx, "missing")
//	if errors.Is(err, ledger.ErrNotFound) { ... }
package client
