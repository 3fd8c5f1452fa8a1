package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct{ name string }

func (s *stubSource) Episodes(context.Context, string, string) ([]Episode, error) { return nil, nil }
func (s *stubSource) FetchPayload(context.Context, string) ([]byte, error)       { return nil, nil }

func TestNormalizeHost(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"astar.bz", "astar.bz"},
		{"v6.astar.bz", "astar.bz"},
		{"WWW.Anilibria.Top", "anilibria.top"},
		{"astar.bz:8443", "astar.bz"},
		{"www.v6.astar.bz", "astar.bz"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeHost(tt.in))
		})
	}
}

func TestResolver_Resolve(t *testing.T) {
	r := NewResolver()
	astar := &stubSource{name: "astar"}
	anilibria := &stubSource{name: "anilibria"}
	r.Register("astar.bz", astar)
	r.Register("anilibria.top", anilibria)

	got, err := r.Resolve("https://v6.astar.bz/online/12345-show.html")
	require.NoError(t, err)
	assert.Same(t, astar, got)

	got, err = r.Resolve("https://anilibria.top:443/anime/releases/release/show")
	require.NoError(t, err)
	assert.Same(t, anilibria, got)

	_, err = r.Resolve("https://example.com/show")
	assert.ErrorIs(t, err, ErrNoSource)

	_, err = r.Resolve("not a url")
	assert.ErrorIs(t, err, ErrNoSource)

	assert.Equal(t, []string{"anilibria.top", "astar.bz"}, r.Hosts())
}
