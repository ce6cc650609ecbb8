package service

import (
	"image/color"
	"strings"
	"unicode/utf16"

	"github.com/lucasb-eyer/go-colorful"
)

// coverSun is the hot end of the generated cover's sun gradient.
const coverSun = "#ff0080"

// coverSunBlend is how far the second stop moves from the title colour toward coverSun.
const coverSunBlend = 0.6

// CoverColor derives a stable placeholder colour from a track title.
// The same title always yields the same upper-case #RRGGBB value.
func CoverColor(title string) string {
	return strings.ToUpper(titleColor(title).Hex())
}

// CoverAccent returns the second gradient stop for a generated cover.
// It blends the title colour toward hot pink in HCL space, so covers of
// different titles share a warm end but keep their own hue.
func CoverAccent(title string) string {
	sun, _ := colorful.Hex(coverSun)
	return strings.ToUpper(titleColor(title).BlendHcl(sun, coverSunBlend).Clamped().Hex())
}

func titleColor(title string) colorful.Color {
	var h int32
	for _, unit := range utf16.Encode([]rune(title)) {
		h = int32(unit) + (h << 5) - h
	}
	rgb := uint32(h) & 0xFFFFFF

	c, _ := colorful.MakeColor(color.RGBA{
		R: uint8(rgb >> 16),
		G: uint8(rgb >> 8),
		B: uint8(rgb),
		A: 0xFF,
	})
	return c
}
