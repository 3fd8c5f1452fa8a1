package rename

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveName(t *testing.T) {
	tests := []struct {
		name    string
		old     string
		display string
		season  string
		want    string
		wantOK  bool
	}{
		{"dotted with resolution", "Show.E05.1080p.mkv", "Show", "S01", "Show S01e05 1080p.mkv", true},
		{"numbered title", "01. Начало пути.mkv", "Ван-Пис", "S01", "Ван-Пис S01e01.mkv", true},
		{"numbered title with note", "12. Finale (uncut).mp4", "Show", "S02", "Show S02e12.mp4", true},
		{"dash suffix", "[Group] Show - 06.mkv", "Show", "S01", "Show S01e06.mkv", true},
		{"seria", "Серия 7.avi", "Сериал", "S03", "Сериал S03e07.avi", true},
		{"spaced number", "Show 3 720P.mkv", "Show", "S01", "Show S01e03 720p.mkv", true},
		{"underscores", "show_11_2160p.mkv", "Show", "S01", "Show S01e11 2160p.mkv", true},
		{"brackets", "[Sub] Show [04].mkv", "Show", "S01", "Show S01e04.mkv", true},
		{"three digits", "Show E123.mkv", "Show", "S01", "Show S01e123.mkv", true},
		{"directory kept", "Show Season 1/Show.E02.mkv", "Show", "S01", "Show Season 1/Show S01e02.mkv", true},
		{"no extension", "Show E09", "Show", "S01", "Show S01e09", true},
		{"no match", "Openings.mkv", "Show", "S01", "Openings.mkv", false},
		{"no match in dir", "Extras/NCOP.mkv", "Show", "S01", "Extras/NCOP.mkv", false},
		{"display sanitized", "Show.E01.mkv", "Re:Zero / Kara", "S01", "Re Zero Kara S01e01.mkv", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DeriveName(tt.old, tt.display, tt.season)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeriveName_Deterministic(t *testing.T) {
	a, _ := DeriveName("Show.E05.1080p.mkv", "Show", "S01")
	b, _ := DeriveName("Show.E05.1080p.mkv", "Show", "S01")
	assert.Equal(t, a, b)
}

func TestDeriveName_Idempotent(t *testing.T) {
	first, ok := DeriveName("Show.E05.1080p.mkv", "Show", "S01")
	assert.True(t, ok)
	second, ok := DeriveName(first, "Show", "S01")
	assert.True(t, ok)
	assert.Equal(t, first, second)
}

func TestSplitExt(t *testing.T) {
	tests := []struct {
		in, stem, ext string
	}{
		{"a.mkv", "a", ".mkv"},
		{"a.b.mkv", "a.b", ".mkv"},
		{".hidden", ".hidden", ""},
		{"..x.mkv", "..x", ".mkv"},
		{"noext", "noext", ""},
	}
	for _, tt := range tests {
		stem, ext := splitExt(tt.in)
		assert.Equal(t, tt.stem, stem, tt.in)
		assert.Equal(t, tt.ext, ext, tt.in)
	}
}

func TestSanitizeName(t *testing.T) {
	// "é" as e + combining acute composes to a single rune.
	assert.Equal(t, "Caf\u00e9", SanitizeName("Cafe\u0301"))
	assert.Equal(t, "a b", SanitizeName(" a:  b. "))
	assert.Equal(t, "x y", SanitizeName("x\ty"))
}
