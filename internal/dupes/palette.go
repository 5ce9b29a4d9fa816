package dupes

import "fmt"

// Color is an RGBA highlight color.
type Color struct {
	Name string `json:"name"`
	R    uint8  `json:"r"`
	G    uint8  `json:"g"`
	B    uint8  `json:"b"`
	A    uint8  `json:"a"`
}

// Hex renders the color as #rrggbbaa.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

// Palette is the fixed set of group highlight colors. Groups beyond its
// length reuse colors from the start.
var Palette = [...]Color{
	{"green", 100, 255, 100, 100},
	{"blue", 100, 100, 255, 100},
	{"teal", 100, 255, 200, 100},
	{"turquoise", 100, 255, 255, 100},
	{"red", 255, 100, 100, 100},
	{"purple", 200, 100, 255, 100},
	{"pink", 255, 100, 200, 100},
	{"orange", 255, 200, 100, 100},
	{"yellow", 255, 255, 100, 100},
	{"brown", 200, 150, 100, 100},
}

// ColorFor returns the palette color for a group ordinal.
func ColorFor(ordinal int) Color {
	return Palette[ordinal%len(Palette)]
}
