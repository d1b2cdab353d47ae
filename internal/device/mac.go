package device

import (
	"fmt"
	"regexp"
	"strings"
)

var macPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^([0-9A-Fa-f]{2}[:-]){5}([0-9A-Fa-f]{2})$`),
	regexp.MustCompile(`^([0-9A-Fa-f]{4}\.){2}([0-9A-Fa-f]{4})$`),
}

// ValidMAC reports whether s is a colon, dash or dotted-quad MAC address.
func ValidMAC(s string) bool {
	for _, p := range macPatterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// NormalizeMAC returns s in the canonical lowercase aa:bb:cc:dd:ee:ff form.
func NormalizeMAC(s string) (string, error) {
	s = strings.TrimSpace(s)
	if !ValidMAC(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidMAC, s)
	}

	clean := strings.NewReplacer(":", "", "-", "", ".", "").Replace(strings.ToLower(s))
	parts := make([]string, 0, 6)
	for i := 0; i < len(clean); i += 2 {
		parts = append(parts, clean[i:i+2])
	}
	return strings.Join(parts, ":"), nil
}
