// Package memory provides in-memory implementations of the storage
// contracts. Suitable for single-instance deployments and tests; state
// does not survive restarts and is not shared across replicas.
package memory
