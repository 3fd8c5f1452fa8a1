// Package builtin registers the episode sources shipped with arrwatch.
package builtin

import (
	"log/slog"

	"github.com/vmunix/arrwatch/internal/source"
	"github.com/vmunix/arrwatch/internal/source/anilibria"
	"github.com/vmunix/arrwatch/internal/source/astar"
)

// LegacyAnilibriaHost is the old anilibria domain, still found in saved refs.
const LegacyAnilibriaHost = "anilibria.tv"

// NewResolver returns a resolver with every built-in source registered.
func NewResolver(fetch *source.Fetcher, log *slog.Logger) *source.Resolver {
	r := source.NewResolver()
	r.Register(astar.Host, astar.New(fetch, log))

	al := anilibria.New(fetch, log)
	r.Register(anilibria.Host, al)
	r.Register(LegacyAnilibriaHost, al)
	return r
}
