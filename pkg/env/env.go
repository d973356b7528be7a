package env

import (
	"os"
	"strconv"
	"strings"
)

// Get returns the trimmed value of the environment variable, or fallback when
// the variable is unset or blank.
func Get(key, fallback string) string {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	val = strings.TrimSpace(val)
	if val == "" {
		return fallback
	}
	return val
}

// Bool parses the environment variable as a boolean, returning fallback on
// unset or unparseable values.
func Bool(key string, fallback bool) bool {
	val := Get(key, "")
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
