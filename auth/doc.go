// Package auth guards the HTTP transport.
//
// Requests authenticate with an API key header or an HS256 bearer token.
// [Middleware] rejects anything else with 401 and attaches the resolved
// [Identity] to the request context. [RBACAuthorizer] then decides per
// tool call whether that identity's roles allow it; the default policy
// lets "reader" call read tools, "operator" call everything that touches
// the database, and "admin" call anything.
//
// The stdio transport never passes through this package: a local client
// that can spawn the server already has the user's privileges.
package auth
