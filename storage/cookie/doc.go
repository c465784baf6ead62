// Package cookie provides stateless implementations of the storage
// contracts that keep all data in encrypted browser cookies. Suitable
// for multi-replica deployments where no shared backend is available.
package cookie
