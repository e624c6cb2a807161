package utils

import (
	"math/rand"

	"github.com/Pallinder/go-randomdata"
)

// NameGenerator hands out silly names that never repeat within one generator.
type NameGenerator struct {
	used map[string]struct{}
}

// NewNameGenerator reseeds go-randomdata, so names are stable for a given seed.
func NewNameGenerator(seed int64) *NameGenerator {
	randomdata.CustomRand(rand.New(rand.NewSource(seed)))
	return &NameGenerator{used: make(map[string]struct{})}
}

func (g *NameGenerator) Name(prefix string) string {
	for {
		name := prefix + randomdata.SillyName()
		if _, exists := g.used[name]; !exists {
			g.used[name] = struct{}{}
			return name
		}
	}
}
