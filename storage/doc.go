// Package storage defines the contracts for persisting in-flight
// authorization requests and one-time token exchange entries across the
// social login redirect round-trip. Interchangeable backends live in the
// memory and cookie subpackages.
package storage
