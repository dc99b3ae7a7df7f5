// Package secret resolves credentials referenced from configuration.
//
// A value of the form "secretref:<provider>:<ref>" is looked up through a
// Provider; the reference may also appear inline ("Bearer secretref:...").
// Two providers ship with focusops:
//
//	secretref:env:FOCUSOPS_JWT_SECRET
//	secretref:keychain:jwt-secret
//
// The keychain provider stores items in the macOS Keychain (or the
// platform's credential store) under the "focusops" service. Values are
// also subject to strict ${VAR} expansion; see ExpandEnvStrict.
package secret
