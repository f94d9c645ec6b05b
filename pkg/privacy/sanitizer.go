// Package privacy hashes and strips personal data before a record leaves the
// producing workflow.
package privacy

import (
	"encoding/hex"
	"encoding/json"
	"strings"
	"unicode"

	"golang.org/x/crypto/blake2b"

	"central_logger/pkg/logrecord"
)

// HashPrefix marks values produced by Sanitizer.Hash.
const HashPrefix = "h:"

// Field names carrying PII in an execution state.
const (
	FieldRequesterEmail = "requester_email"
	FieldRequesterName  = "requester_name"
	FieldSubject        = "subject"
)

// Rule normalizes a raw value before it is hashed, so that trivially
// different spellings of the same value hash identically.
type Rule func(string) string

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// NormalizeText trims surrounding whitespace.
func NormalizeText(s string) string { return strings.TrimSpace(s) }

// DefaultRules lists the fields that are hashed rather than copied. Names
// match whole field names only, so tool_name or file_name pass through.
func DefaultRules() map[string]Rule {
	return map[string]Rule{
		FieldRequesterEmail: NormalizeEmail,
		"email":             NormalizeEmail,
		"customer_email":    NormalizeEmail,
		"user_email":        NormalizeEmail,
		"contact_email":     NormalizeEmail,
		FieldRequesterName:  NormalizeText,
		"customer_name":     NormalizeText,
		"full_name":         NormalizeText,
		"cardholder_name":   NormalizeText,
		FieldSubject:        NormalizeText,
		"phone":             NormalizeText,
		"phone_number":      NormalizeText,
	}
}

// DefaultDenyList holds name segments that remove a field outright:
// credentials, passwords and payment data. "access_token" and "card_number"
// match; "input_tokens" and "discarded" do not.
func DefaultDenyList() []string {
	return []string{
		"password", "passwd", "secret", "token", "api_key", "apikey",
		"credential", "credentials", "authorization", "card", "cvv", "iban", "ssn",
	}
}

// canonicalName lower-cases field and splits it into "_"-joined segments at
// separators and camelCase boundaries: "clientSecret" and "Client-Secret"
// both become "client_secret".
func canonicalName(field string) string {
	runes := []rune(field)
	var b strings.Builder
	pending := false
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			pending = b.Len() > 0
			continue
		}
		if unicode.IsUpper(r) && i > 0 && b.Len() > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				pending = true
			}
		}
		if pending {
			b.WriteByte('_')
			pending = false
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// Sanitizer applies hashing rules and the deny-list. It is safe for
// concurrent use once constructed.
type Sanitizer struct {
	key   [32]byte
	rules map[string]Rule
	deny  []string
}

// Option configures a Sanitizer.
type Option func(*Sanitizer)

// WithRules replaces the hashing rules. Field names are compared in
// canonical form, so requesterEmail matches a requester_email rule.
func WithRules(rules map[string]Rule) Option {
	return func(s *Sanitizer) {
		s.rules = make(map[string]Rule, len(rules))
		for field, rule := range rules {
			s.rules[canonicalName(field)] = rule
		}
	}
}

// WithDenyList replaces the deny-list. An entry may span several segments,
// as api_key does.
func WithDenyList(deny []string) Option {
	return func(s *Sanitizer) {
		s.deny = make([]string, 0, len(deny))
		for _, d := range deny {
			if c := canonicalName(d); c != "" {
				s.deny = append(s.deny, "_"+c+"_")
			}
		}
	}
}

// New creates a sanitizer keyed by salt. The same salt always yields the same
// hashes; without the salt a stored hash cannot be matched against guesses.
func New(salt string, opts ...Option) *Sanitizer {
	s := &Sanitizer{key: blake2b.Sum256([]byte(salt))}
	WithRules(DefaultRules())(s)
	WithDenyList(DefaultDenyList())(s)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hash returns the keyed BLAKE2b-256 digest of value.
func (s *Sanitizer) Hash(value string) string {
	h, err := blake2b.New256(s.key[:])
	if err != nil {
		// key length is fixed at 32 bytes, New256 only fails above 64
		panic(err)
	}
	h.Write([]byte(value))
	return HashPrefix + hex.EncodeToString(h.Sum(nil))
}

// Denied reports whether one run of field's name segments matches the
// deny-list.
func (s *Sanitizer) Denied(field string) bool {
	padded := "_" + canonicalName(field) + "_"
	for _, d := range s.deny {
		if strings.Contains(padded, d) {
			return true
		}
	}
	return false
}

func (s *Sanitizer) rule(field string) (Rule, bool) {
	r, ok := s.rules[canonicalName(field)]
	return r, ok
}

// SanitizeFields returns a copy of fields with ruled fields hashed and
// deny-listed fields removed. Empty values of ruled fields are dropped.
func (s *Sanitizer) SanitizeFields(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for field, value := range fields {
		if rule, ok := s.rule(field); ok {
			normalized := rule(value)
			if normalized == "" {
				continue
			}
			out[field] = s.Hash(normalized)
			continue
		}
		if s.Denied(field) {
			continue
		}
		out[field] = value
	}
	return out
}

// SanitizeValue walks v and applies the same policy to every object member
// at any depth.
func (s *Sanitizer) SanitizeValue(v logrecord.Value) logrecord.Value {
	switch v.Kind() {
	case logrecord.KindArray:
		items := v.Items()
		out := make([]logrecord.Value, len(items))
		for i, item := range items {
			out[i] = s.SanitizeValue(item)
		}
		return logrecord.Array(out...)
	case logrecord.KindObject:
		fields := v.Fields()
		out := make(map[string]logrecord.Value, len(fields))
		for key, member := range fields {
			if rule, ok := s.rule(key); ok {
				if hashed, keep := s.hashValue(rule, member); keep {
					out[key] = hashed
				}
				continue
			}
			if s.Denied(key) {
				continue
			}
			out[key] = s.SanitizeValue(member)
		}
		return logrecord.Object(out)
	}
	return v
}

func (s *Sanitizer) hashValue(rule Rule, v logrecord.Value) (logrecord.Value, bool) {
	switch v.Kind() {
	case logrecord.KindNull:
		return v, true
	case logrecord.KindString:
		normalized := rule(v.AsString())
		if normalized == "" {
			return logrecord.Value{}, false
		}
		return logrecord.String(s.Hash(normalized)), true
	}
	b, err := json.Marshal(v)
	if err != nil {
		return logrecord.Value{}, false
	}
	return logrecord.String(s.Hash(string(b))), true
}
