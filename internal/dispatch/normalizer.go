package dispatch

import "strings"

// Normalize parses raw recipient entries into a deduplicated, validated
// recipient list. Each entry may itself be a delimited blob (commas,
// semicolons, whitespace, newlines, in any combination). Addresses are
// trimmed and lowercased; malformed entries are silently dropped. Order is
// the insertion order of first-seen addresses.
//
// Returns ErrNoRecipients when nothing valid remains. Pure transform, no
// side effects.
func Normalize(entries []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string

	for _, entry := range entries {
		for _, tok := range splitRecipients(entry) {
			addr := strings.ToLower(strings.TrimSpace(tok))
			if !ValidAddress(addr) || seen[addr] {
				continue
			}
			seen[addr] = true
			out = append(out, addr)
		}
	}

	if len(out) == 0 {
		return nil, ErrNoRecipients
	}
	return out, nil
}

func splitRecipients(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		switch r {
		case ',', ';', ' ', '\t', '\n', '\r':
			return true
		}
		return false
	})
}

// ValidAddress reports whether addr passes the syntactic check: exactly one
// "@" with non-empty segments on both sides.
func ValidAddress(addr string) bool {
	at := strings.IndexByte(addr, '@')
	if at <= 0 || at == len(addr)-1 {
		return false
	}
	return strings.IndexByte(addr[at+1:], '@') < 0
}
