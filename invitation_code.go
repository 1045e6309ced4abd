package userbase

import (
	"math/rand/v2"
)

const (
	// InvitationCodeLength is the number of characters in a code.
	InvitationCodeLength = 10
	// InvitationCodeAlphabet lists the characters a code may contain.
	InvitationCodeAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// CodeSource returns a uniformly distributed integer in [0, n).
type CodeSource func(n int) int

// CodeGenerator draws invitation codes in which no two adjacent characters
// are equal.
type CodeGenerator struct {
	source CodeSource
}

// CodeGeneratorOption customizes a CodeGenerator.
type CodeGeneratorOption func(*CodeGenerator)

// WithCodeSource overrides the random source, mostly for tests.
func WithCodeSource(source CodeSource) CodeGeneratorOption {
	return func(g *CodeGenerator) {
		if source != nil {
			g.source = source
		}
	}
}

// NewCodeGenerator returns a generator backed by math/rand/v2.
func NewCodeGenerator(opts ...CodeGeneratorOption) *CodeGenerator {
	g := &CodeGenerator{source: rand.IntN}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Next returns a new code. After the first character each position is drawn
// from the alphabet minus the previous character, so every allowed code has
// the same probability.
func (g *CodeGenerator) Next() string {
	size := len(InvitationCodeAlphabet)
	buf := make([]byte, InvitationCodeLength)

	prev := g.draw(size)
	buf[0] = InvitationCodeAlphabet[prev]
	for i := 1; i < InvitationCodeLength; i++ {
		idx := g.draw(size - 1)
		if idx >= prev {
			idx++
		}
		buf[i] = InvitationCodeAlphabet[idx]
		prev = idx
	}

	return string(buf)
}

func (g *CodeGenerator) draw(n int) int {
	v := g.source(n)
	if v < 0 || v >= n {
		v = ((v % n) + n) % n
	}
	return v
}

// IsWellFormedCode reports whether code could have come from a CodeGenerator.
func IsWellFormedCode(code string) bool {
	if len(code) != InvitationCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !isCodeChar(code[i]) {
			return false
		}
		if i > 0 && code[i] == code[i-1] {
			return false
		}
	}
	return true
}

func isCodeChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}
