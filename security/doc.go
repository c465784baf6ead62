// Package security provides the security primitives for the social login
// subsystem: the AES-256-GCM cookie codec, secret key derivation, expiry
// checks, per-IP rate limiting, and security audit logging.
package security
