// Package embeddings provides embedding generation for the knowledge index.
//
// Two providers are available: a TEI-compatible HTTP provider for real
// deployments and a deterministic mock provider that derives vectors from a
// hash of the input text. The mock provider keeps the engine fully
// functional when no embedding service is reachable.
package embeddings
