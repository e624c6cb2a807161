package utils

import (
	"math/rand"
)

type ColorFloat [4]float32

var (
	White = ColorFloat{1, 1, 1, 1}
	Blue  = ColorFloat{0, 0, 1, 1}
)

// RandomColor returns an opaque color with every channel in [0, 1).
func RandomColor(r *rand.Rand) ColorFloat {
	return ColorFloat{r.Float32(), r.Float32(), r.Float32(), 1.0}
}
