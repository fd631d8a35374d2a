package model

import "strings"

// automatedPrefixes mark actors that are not humans.
var automatedPrefixes = []string{"agent:", "bot:", "service:"}

// IsAutomated reports whether actor names an agent, bot or service identity.
func IsAutomated(actor string) bool {
	for _, p := range automatedPrefixes {
		if strings.HasPrefix(actor, p) {
			return true
		}
	}
	return false
}
