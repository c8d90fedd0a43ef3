package code

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
)

// No 0/O, 1/I or lowercase: codes are read aloud and typed by hand.
var letters = strings.Split("23456789ABCDEFGHJKLMNPQRSTUVWXYZ", "")

const (
	DefaultLength      = 6
	DefaultMaxAttempts = 10
)

var ErrExhaustedAttempts = errors.New("no free room code after maximum attempts")

type Generator struct {
	length      int
	maxAttempts int
	intn        func(n int) int
}

type Option func(*Generator)

func WithLength(length int) Option {
	return func(g *Generator) {
		if length > 0 {
			g.length = length
		}
	}
}

func WithMaxAttempts(attempts int) Option {
	return func(g *Generator) {
		if attempts > 0 {
			g.maxAttempts = attempts
		}
	}
}

// WithIntn replaces the random source. intn must return a value in [0, n).
func WithIntn(intn func(n int) int) Option {
	return func(g *Generator) {
		if intn != nil {
			g.intn = intn
		}
	}
}

func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		length:      DefaultLength,
		maxAttempts: DefaultMaxAttempts,
		intn:        rand.Intn,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) Generate() string {
	var b strings.Builder
	b.Grow(g.length)
	for i := 0; i < g.length; i++ {
		b.WriteString(letters[g.intn(len(letters))])
	}
	return b.String()
}

// Allocate generates candidates until try commits one. try reports false
// when the candidate is already taken; an error from try aborts allocation.
func (g *Generator) Allocate(try func(code string) (bool, error)) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		candidate := g.Generate()
		ok, err := try(candidate)
		if err != nil {
			return "", err
		}
		if ok {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %d attempts", ErrExhaustedAttempts, g.maxAttempts)
}
