// Package config handles typings.yaml loading.
package config

import (
	"os"
	"regexp"
	"strings"
)

// envRef matches ${NAME} and ${NAME:-fallback}.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// ExpandEnv substitutes environment references in typings.yaml text, so
// secrets such as a registry token or a Redis password stay out of the file:
//
//	fetch:
//	  headers:
//	    Authorization: Bearer ${NPM_TOKEN}
//	cache:
//	  url: ${TYPINGS_REDIS_URL:-redis://localhost:6379/0}
//
// An unset or empty variable takes the fallback, or expands to nothing.
// Missing required values surface when the consuming component validates
// its config.
func ExpandEnv(input string) string {
	idx := envRef.FindAllStringSubmatchIndex(input, -1)
	if len(idx) == 0 {
		return input
	}

	var b strings.Builder
	last := 0
	for _, m := range idx {
		b.WriteString(input[last:m[0]])
		last = m[1]

		if v := os.Getenv(input[m[2]:m[3]]); v != "" {
			b.WriteString(v)
		} else if m[4] >= 0 {
			b.WriteString(input[m[4]:m[5]])
		}
	}
	b.WriteString(input[last:])
	return b.String()
}
