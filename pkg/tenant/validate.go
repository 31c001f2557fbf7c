package tenant

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	MinSlugLength = 2
	// MaxSlugLength matches the DNS label limit.
	MaxSlugLength = 63
)

var slugPattern = regexp.MustCompile(`(?i)^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// reservedSlugs can never name a tenant: they collide with application
// routes, framework assets or common infrastructure hostnames.
var reservedSlugs = map[string]struct{}{
	"api": {}, "admin": {}, "satizap": {}, "association-not-found": {}, "atendimento": {},
	"_next": {}, "favicon": {}, "robots": {}, "sitemap": {}, "manifest": {}, "sw": {},
	"static": {}, "public": {}, "assets": {}, "images": {}, "css": {}, "js": {},
	"auth": {}, "login": {}, "logout": {}, "register": {}, "signup": {}, "signin": {},
	"dashboard": {}, "panel": {}, "console": {}, "app": {}, "portal": {},
	"www": {}, "mail": {}, "ftp": {}, "blog": {}, "support": {}, "help": {}, "docs": {}, "status": {},
}

var staticExtensions = []string{
	".ico", ".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".avif",
	".css", ".js", ".map", ".txt", ".xml", ".json", ".webmanifest",
	".woff", ".woff2", ".ttf", ".eot", ".pdf",
}

// Validation is the outcome of ValidateSlug. Reason is empty when Valid.
type Validation struct {
	Valid  bool
	Reason string
}

// ValidateSlug reports whether candidate may name a tenant. Checks run in a
// fixed order and the first failure is the only reason reported:
// empty, length, format, reserved word, file extension. The format pattern
// already rejects '.', so the extension check only guards a looser pattern.
func ValidateSlug(candidate string) Validation {
	if candidate == "" {
		return Validation{Reason: "empty"}
	}
	if n := len(candidate); n < MinSlugLength || n > MaxSlugLength {
		return Validation{Reason: fmt.Sprintf("invalid length: %d (must be between %d and %d)", n, MinSlugLength, MaxSlugLength)}
	}
	if !slugPattern.MatchString(candidate) {
		return Validation{Reason: "invalid format"}
	}
	if IsReserved(candidate) {
		return Validation{Reason: "reserved word: " + strings.ToLower(candidate)}
	}
	if ext, ok := staticExtension(candidate); ok {
		return Validation{Reason: "file extension: " + ext}
	}
	return Validation{Valid: true}
}

// IsReserved reports whether s, compared case-insensitively, is a reserved
// identifier.
func IsReserved(s string) bool {
	_, ok := reservedSlugs[strings.ToLower(s)]
	return ok
}

func staticExtension(s string) (string, bool) {
	lower := strings.ToLower(s)
	for _, ext := range staticExtensions {
		if strings.HasSuffix(lower, ext) {
			return ext, true
		}
	}
	return "", false
}
