// Package providers integrates the supported social login providers and
// normalizes their userinfo shapes into a single ExternalIdentity.
package providers
