package session

import "math/rand/v2"

// palette is the fixed, ordered set of player colors. Allocation walks it in
// order so early joiners get stable, predictable colors.
var palette = []string{
	"#e6194b", // red
	"#3cb44b", // green
	"#4363d8", // blue
	"#ffe119", // yellow
	"#f58231", // orange
	"#911eb4", // purple
	"#42d4f4", // cyan
	"#f032e6", // magenta
}

// allocateColor returns the first palette entry not reported in use. When the
// palette is exhausted (more players than colors) it falls back to reusing a
// pseudo-random entry; duplicates are permitted only in that overflow case.
// Colors are never tracked separately: a color is free again the instant the
// player holding it is removed from the roster.
func allocateColor(inUse func(color string) bool) string {
	for _, c := range palette {
		if !inUse(c) {
			return c
		}
	}
	return palette[rand.IntN(len(palette))]
}
