// Package socialauth implements the social login exchange subsystem:
// authorization request persistence across the provider redirect,
// provider callback completion, identity resolution, and the one-time
// code hand-off that delivers session tokens to the client.
package socialauth
