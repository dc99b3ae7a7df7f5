// Package warmer pre-populates the cache at startup.
//
// Each registered Target is refreshed concurrently with its own timeout;
// one slow or failing category never delays or cancels the others. The
// most recent Report is kept for health checks.
package warmer
