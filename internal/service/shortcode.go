package service

import (
	"crypto/rand"
)

// URL-safe alphabet for short codes: letters, digits, '-' and '_'.
// 64 characters, so a random byte masked to 6 bits maps uniformly.
const urlAlphabet = "useandom-26T198340PX75pxJACKVERYMINDBUSHWOLF_GQZbfghjklqvwyzrict"

// ShortCodeGenerator produces fixed-length random short codes.
// It makes no uniqueness guarantee; the unique constraint on
// urls.short_code arbitrates collisions.
type ShortCodeGenerator struct {
	length int
}

// NewShortCodeGenerator creates a generator for codes of the given length.
func NewShortCodeGenerator(length int) *ShortCodeGenerator {
	if length <= 0 {
		length = 8
	}
	return &ShortCodeGenerator{length: length}
}

// Generate returns a random short code from the URL-safe alphabet,
// seeded from the crypto random source on every call.
func (g *ShortCodeGenerator) Generate() (string, error) {
	buf := make([]byte, g.length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = urlAlphabet[b&63]
	}
	return string(buf), nil
}
