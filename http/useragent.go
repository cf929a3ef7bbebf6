package http

import "sync"

// Version is the spidex release embedded in the default user agent.
const Version = "1.0.0"

// InitialUserAgent is the process-wide user agent in effect until SetDefaultUserAgent is called.
const InitialUserAgent = "spidex/" + Version + " (Go Client / Like a Spider)"

var (
	userAgentMu sync.RWMutex
	userAgent   = InitialUserAgent
)

// DefaultUserAgent returns the user agent sent with every request that does not
// carry its own user-agent header.
func DefaultUserAgent() string {
	userAgentMu.RLock()
	defer userAgentMu.RUnlock()

	return userAgent
}

// SetDefaultUserAgent replaces the process-wide default user agent.
// Requests already built keep the value they were built with.
func SetDefaultUserAgent(ua string) {
	userAgentMu.Lock()
	defer userAgentMu.Unlock()

	userAgent = ua
}
