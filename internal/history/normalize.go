package history

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// StripAccents removes combining marks so "Comédie" and "Comedie" compare
// equal.
func StripAccents(s string) string {
	decomposed := norm.NFKD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// NormalizeKey lowers, strips accents and collapses everything that is not a
// letter or digit into single spaces, producing a stable comparison key for
// entity names that drift between upstream runs.
func NormalizeKey(s string) string {
	t := strings.ToLower(strings.TrimSpace(StripAccents(s)))
	var b strings.Builder
	b.Grow(len(t))
	for _, r := range t {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// CanonicalNames maps type tag -> normalized key -> the first spelling seen
// in the history, which is kept as the canonical one across runs.
type CanonicalNames map[string]map[string]string

// BuildCanonicalNames scans the history and records the first name seen for
// each normalized key.
func BuildCanonicalNames(records []Record) CanonicalNames {
	m := CanonicalNames{TypeCar: {}, TypeBike: {}}
	for _, r := range records {
		tag := strings.TrimSpace(r.Type)
		name := strings.TrimSpace(r.Name)
		if tag == "" || name == "" {
			continue
		}
		if _, ok := m[tag]; !ok {
			m[tag] = map[string]string{}
		}
		key := NormalizeKey(name)
		if _, ok := m[tag][key]; !ok {
			m[tag][key] = name
		}
	}
	return m
}

// Canonical returns the canonical spelling for a raw upstream name, or the
// raw name itself when it has never been seen before.
func (c CanonicalNames) Canonical(tag, rawName string) string {
	if byKey, ok := c[tag]; ok {
		if name, ok := byKey[NormalizeKey(rawName)]; ok {
			return name
		}
	}
	return rawName
}
