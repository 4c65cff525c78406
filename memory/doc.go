// Package memory stores and retrieves short facts about the user by
// semantic similarity.
//
// Architecture:
//   - Store: vector storage backend (Qdrant for production, chromem-go
//     embedded for local use and tests)
//   - Embedder: text-to-vector conversion (ONNX MiniLM locally, mock for
//     tests, a ristretto cache wrapper around either)
//   - Engine: embeds text and talks to the Store; returns normalized
//     Record values
//   - Gateway: the application-facing surface, fixed to a single user;
//     reads are best-effort and degrade to empty results
package memory
