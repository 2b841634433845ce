// Package auth provides the credential and session-trust subsystem for a
// JSON HTTP service: signup, login, stateless JWT session issuance and
// verification, route-level access control, and the self-service password
// reset and password change lifecycle.
//
// Sessions:
//   - Session tokens are self-contained signed JWTs carrying the account id
//     and issuance instant. The server keeps no session table; tokens issued
//     before an account's password_changed_at watermark are rejected, which is
//     the only revocation mechanism.
//
// Password resets:
//   - Reset tokens are high-entropy opaque values delivered out-of-band. Only
//     a SHA-256 digest is persisted, so a database read alone cannot forge a
//     valid reset link. Completion consumes the digest with an atomic
//     conditional update so a token can be redeemed at most once.
//
// Wire the flow handlers behind the HTTP controller (RegisterAuthRoutes) and
// guard downstream routes with Protect and RestrictTo.
package auth
