// Package auth performs the Celcat login handshake: it harvests the
// anti-forgery token from the login page, submits credentials, verifies the
// outcome, and captures the resulting session. Session expiry is detected
// reactively through IsChallenge; Refresh re-runs the handshake behind a
// single-flight guard so concurrent requests that hit an expired session
// share one re-login.
package auth
