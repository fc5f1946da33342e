package config

import (
	"os"

	"github.com/azstorecore/core/pkg/extent/destination"
	extentgc "github.com/azstorecore/core/pkg/extent/gc"
	"github.com/azstorecore/core/pkg/extent/store"
	"github.com/azstorecore/core/pkg/extent/writer"
)

// StoreOptions translates the loaded configuration into the typed
// Options struct pkg/extent/store.Open expects.
func (c *Config) StoreOptions() store.Options {
	dests := make([]destination.Config, 0, len(c.Destinations))
	for _, d := range c.Destinations {
		dests = append(dests, destination.Config{
			ID:             d.ID,
			RootPath:       d.RootPath,
			MaxConcurrency: d.MaxConcurrency,
			DirMode:        os.FileMode(0750),
		})
	}

	return store.Options{
		Destinations:     dests,
		CatalogPath:      c.Catalog.Path,
		AutosaveInterval: c.Catalog.AutosaveInterval,
		Writer: writer.Options{
			RotationThreshold: c.Writer.RotationThreshold.Int64(),
			IdleTimeout:       c.Writer.IdleTimeout,
		},
		GC: extentgc.Options{
			UnmodifiedWindow: c.GC.UnmodifiedWindow,
			DryRun:           c.GC.DryRun,
		},
		GCInterval: c.GC.Interval,
	}
}
