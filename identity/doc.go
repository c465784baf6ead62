// Package identity resolves authenticated external identities to local
// user accounts, provisioning new accounts on first login.
package identity
