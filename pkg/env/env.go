// Package env reads process environment variables outside the typed
// config sections, for knobs that must work before config.Load runs.
package env

import "os"

// Get returns the variable's value, or fallback when it is unset or empty.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
