package lyrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tejashwikalptaru/pixeltunes/internal/domain"
)

func TestParse_Scenario(t *testing.T) {
	raw := "[00:01.50]Hello\n[00:03.00]World\nNoTimestamp\n[00:02.00]\n"

	lines := Parse(raw)

	assert.Equal(t, []domain.LyricLine{
		{Time: 1.5, Text: "Hello"},
		{Time: 3.0, Text: "World"},
	}, lines)
}

func TestParse_EmptyInput(t *testing.T) {
	lines := Parse("")
	require.NotNil(t, lines)
	assert.Empty(t, lines)

	assert.Empty(t, Parse("\n\n  \n"))
}

func TestParse_TimeArithmetic(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want float64
	}{
		{"whole seconds", "[02:05]line", float64(2*60 + 5)},
		{"two digit fraction", "[01:07.25]line", float64(1*60+7) + 0.25},
		{"three digit fraction", "[10:59.125]line", float64(10*60+59) + 0.125},
		{"zero", "[00:00.00]line", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := Parse(tt.raw)
			require.Len(t, lines, 1)
			assert.Equal(t, tt.want, lines[0].Time)
			assert.Equal(t, "line", lines[0].Text)
		})
	}
}

func TestParse_DropsUntaggedAndMetadataLines(t *testing.T) {
	raw := "[ar:Some Artist]\n[ti:Title]\nplain text\n[00:04.00]  sung  \n[0:05.00]bad tag\n"

	lines := Parse(raw)

	require.Len(t, lines, 1)
	assert.Equal(t, "sung", lines[0].Text)
	assert.Equal(t, 4.0, lines[0].Time)
}

func TestParse_KeepsInputOrder(t *testing.T) {
	raw := "[00:09.00]late\n[00:01.00]early\n"

	lines := Parse(raw)

	require.Len(t, lines, 2)
	assert.Equal(t, "late", lines[0].Text)
	assert.Equal(t, "early", lines[1].Text)
}

func TestParse_MultipleTagsOnOneLine(t *testing.T) {
	lines := Parse("[00:10.00][00:40.00]Chorus\r\n")

	assert.Equal(t, []domain.LyricLine{
		{Time: 10, Text: "Chorus"},
		{Time: 40, Text: "Chorus"},
	}, lines)
}

func TestParse_WindowsLineEndings(t *testing.T) {
	lines := Parse("[00:01.00]one\r\n[00:02.00]two\r\n")

	require.Len(t, lines, 2)
	assert.Equal(t, "one", lines[0].Text)
	assert.Equal(t, "two", lines[1].Text)
}
