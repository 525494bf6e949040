// Package vouch implements the authentication and account backend for a
// JSON web application: registration, password login, access/refresh token
// issuance, one time sign in codes, super admin gated user administration,
// and a small testimonial resource.
//
// The package is library first: cmd/server wires it into a runnable
// service, but every piece (token service, repositories, command handlers,
// HTTP controllers) can be embedded on its own.
package vouch
