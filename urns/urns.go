// Package urns canonicalizes sender and recipient identifiers into
// scheme-qualified addresses. Telephone numbers are normalized to E.164 using
// a hint country when the gateway omits the leading plus; platform user ids
// are carried verbatim under their platform scheme.
package urns

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const (
	SchemeTel      = "tel"
	SchemeTelegram = "telegram"
	SchemeFacebook = "facebook"
	SchemeLine     = "line"
	SchemeExternal = "ext"
)

var (
	ErrInvalidAddress = errors.New("urns: invalid address")
	ErrInvalidURN     = errors.New("urns: invalid urn")
)

// URN is a scheme-qualified address, e.g. "tel:+254771234567".
type URN string

func (u URN) String() string { return string(u) }

// Parts splits a URN into its scheme and path.
func (u URN) Parts() (string, string, error) {
	scheme, path, found := strings.Cut(string(u), ":")
	if !found || strings.TrimSpace(scheme) == "" || strings.TrimSpace(path) == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidURN, string(u))
	}
	return scheme, path, nil
}

func (u URN) Scheme() string {
	scheme, _, err := u.Parts()
	if err != nil {
		return ""
	}
	return scheme
}

func (u URN) Path() string {
	_, path, err := u.Parts()
	if err != nil {
		return ""
	}
	return path
}

// FromParts builds a URN without normalization. Both parts are required.
func FromParts(scheme, path string) (URN, error) {
	scheme = strings.TrimSpace(strings.ToLower(scheme))
	path = strings.TrimSpace(path)
	if scheme == "" || path == "" {
		return "", fmt.Errorf("%w: scheme %q path %q", ErrInvalidURN, scheme, path)
	}
	return URN(scheme + ":" + path), nil
}

// FromTel normalizes a raw phone number under the tel scheme. country is the
// two-letter hint used when the number has no leading plus; it may be empty
// for already-prefixed numbers.
func FromTel(raw, country string) (URN, error) {
	number, err := NormalizePhone(raw, country)
	if err != nil {
		return "", err
	}
	return URN(SchemeTel + ":" + number), nil
}

func FromTelegram(id string) (URN, error) { return FromParts(SchemeTelegram, id) }

func FromFacebook(id string) (URN, error) { return FromParts(SchemeFacebook, id) }

func FromLine(id string) (URN, error) { return FromParts(SchemeLine, id) }

// Normalize canonicalizes a raw address for the given scheme. Telephone
// addresses are reformatted to E.164; platform ids pass through untouched.
// The function is pure and fails explicitly rather than guessing.
func Normalize(raw, scheme, country string) (URN, error) {
	scheme = strings.TrimSpace(strings.ToLower(scheme))
	switch scheme {
	case SchemeTel:
		return FromTel(raw, country)
	case "":
		return "", fmt.Errorf("%w: empty scheme", ErrInvalidURN)
	default:
		return FromParts(scheme, raw)
	}
}

// NormalizePhone strips formatting and returns the E.164 form of a phone
// number. A number without a leading plus is parsed against the hint country;
// long all-digit strings are retried with a plus before giving up.
func NormalizePhone(raw, country string) (string, error) {
	cleaned := cleanPhone(raw)
	if cleaned == "" {
		return "", fmt.Errorf("%w: empty number", ErrInvalidAddress)
	}

	region := strings.ToUpper(strings.TrimSpace(country))
	if parsed, err := phonenumbers.Parse(cleaned, region); err == nil {
		if phonenumbers.IsPossibleNumber(parsed) {
			return phonenumbers.Format(parsed, phonenumbers.E164), nil
		}
	}

	// bulk gateways often drop the plus from fully qualified numbers
	if !strings.HasPrefix(cleaned, "+") && len(cleaned) >= 11 && allDigits(cleaned) {
		if parsed, err := phonenumbers.Parse("+"+cleaned, ""); err == nil {
			if phonenumbers.IsPossibleNumber(parsed) {
				return phonenumbers.Format(parsed, phonenumbers.E164), nil
			}
		}
	}

	return "", fmt.Errorf("%w: cannot normalize %q (country %q)", ErrInvalidAddress, raw, country)
}

func cleanPhone(raw string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
