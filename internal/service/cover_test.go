package service

import (
	"regexp"
	"testing"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoverColor(t *testing.T) {
	// "a" hashes to 97 = 0x000061
	assert.Equal(t, "#000061", CoverColor("a"))
	// "ab": 97*31 + 98 = 3105 = 0x000C21
	assert.Equal(t, "#000C21", CoverColor("ab"))
	assert.Equal(t, "#000000", CoverColor(""))
}

func TestCoverColorStableAndWellFormed(t *testing.T) {
	hex := regexp.MustCompile(`^#[0-9A-F]{6}$`)
	for _, title := range []string{"Hello", "周杰伦 - 晴天", "A much longer title that overflows the hash"} {
		c := CoverColor(title)
		assert.Regexp(t, hex, c)
		assert.Equal(t, c, CoverColor(title))
	}
	assert.NotEqual(t, CoverColor("Hello"), CoverColor("World"))
}

func TestCoverAccentBlendsTowardSun(t *testing.T) {
	hex := regexp.MustCompile(`^#[0-9A-F]{6}$`)
	sun, err := colorful.Hex(coverSun)
	require.NoError(t, err)

	for _, title := range []string{"a", "Hello", "周杰伦 - 晴天"} {
		accent := CoverAccent(title)
		assert.Regexp(t, hex, accent)
		assert.Equal(t, accent, CoverAccent(title))
		assert.NotEqual(t, CoverColor(title), accent, title)

		base, err := colorful.Hex(CoverColor(title))
		require.NoError(t, err)
		got, err := colorful.Hex(accent)
		require.NoError(t, err)
		assert.Less(t, got.DistanceCIE76(sun), base.DistanceCIE76(sun), "%s moves toward the sun colour", title)
	}
}
