package config

import (
	"strconv"
	"strings"
	"unicode"
)

// Kind is the coarse category of an environment variable.
type Kind string

const (
	KindSystem    Kind = "system"
	KindGenerated Kind = "generated"
	KindDatabase  Kind = "database"
	KindSecret    Kind = "secret"
	KindURL       Kind = "url"
	KindBoolean   Kind = "boolean"
	KindNumeric   Kind = "numeric"
	KindConfig    Kind = "config"
)

// Redacted replaces the value of sensitive variables in printed output.
const Redacted = "[REDACTED]"

var secretPatterns = []string{
	"secret", "key", "token", "password", "passwd", "pwd",
	"auth", "credential", "private", "cert",
	"client_id", "oauth", "bearer", "jwt", "session", "cookie",
	"salt", "signature", "signing", "encryption", "cipher",
	"webhook", "vault",
}

var databasePatterns = []string{
	"database_url", "db_url", "dsn", "connection_string",
	"postgres_url", "mysql_url", "mongodb_url", "redis_url",
}

var systemVars = map[string]bool{
	"path": true, "home": true, "user": true, "shell": true, "pwd": true,
	"lang": true, "term": true, "tmpdir": true, "hostname": true,
	"oldpwd": true, "shlvl": true, "logname": true,
}

// Classify returns the kind of a variable and whether its value must not be
// printed.
func Classify(name, value string) (Kind, bool) {
	lower := strings.ToLower(name)

	if systemVars[lower] {
		return KindSystem, false
	}

	for _, pattern := range databasePatterns {
		if strings.Contains(lower, pattern) {
			return KindDatabase, true
		}
	}

	for _, pattern := range secretPatterns {
		if strings.Contains(lower, pattern) {
			return KindSecret, true
		}
	}

	if looksGenerated(value) {
		return KindGenerated, true
	}

	// URLs with embedded credentials
	if strings.Contains(value, "://") && strings.Contains(value, "@") {
		return KindDatabase, true
	}

	if strings.HasPrefix(value, "http") || strings.Contains(lower, "url") {
		return KindURL, false
	}

	if value == "true" || value == "false" {
		return KindBoolean, false
	}

	if _, err := strconv.Atoi(value); err == nil {
		return KindNumeric, false
	}

	return KindConfig, false
}

// Redact returns value, or Redacted when the variable is sensitive.
func Redact(name, value string) string {
	if _, sensitive := Classify(name, value); sensitive && value != "" {
		return Redacted
	}
	return value
}

func looksGenerated(value string) bool {
	if len(value) < 16 {
		return false
	}

	// UUID
	if len(value) == 36 && strings.Count(value, "-") == 4 {
		return true
	}

	// JWT
	if strings.Count(value, ".") == 2 && len(value) > 50 {
		return true
	}

	return len(value) >= 20 && isTokenAlphabet(value) && hasHighEntropy(value) && containsMixedCase(value)
}

func isTokenAlphabet(s string) bool {
	for _, r := range s {
		if !((r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' || r == '+' || r == '/' || r == '=') {
			return false
		}
	}
	return true
}

func hasHighEntropy(value string) bool {
	unique := make(map[rune]struct{})
	for _, r := range value {
		unique[r] = struct{}{}
	}
	return float64(len(unique))/float64(len(value)) > 0.5
}

func containsMixedCase(value string) bool {
	var upper, lower bool
	for _, r := range value {
		upper = upper || unicode.IsUpper(r)
		lower = lower || unicode.IsLower(r)
		if upper && lower {
			return true
		}
	}
	return false
}
