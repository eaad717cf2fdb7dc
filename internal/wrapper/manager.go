// Package wrapper correlates wrapper-layer exceptions with native crash reports.
//
// The lifecycle of a record is:
//
//	Writer.Save            crash time: overwrite the pending slot
//	Resolver.ResolveOnStartup   next startup: rename pending -> report id, prune orphans
//	Augmenter.Augment      report generation: merge the exception model
//	Augmenter.MarkConsumed after every consumer: delete the slot
package wrapper

import (
	"errors"
	"time"

	"github.com/dotcommander/wrapcrash/internal/native"
	"github.com/dotcommander/wrapcrash/internal/store"
)

// Options configures a Manager.
type Options struct {
	Store         store.Store
	Native        native.Subsystem
	OrphanHorizon time.Duration
	CacheSize     int
	Deps          Deps
}

// Manager wires the writer, resolver and augmenter over one store. It owns
// the store's lifetime: Close closes it.
type Manager struct {
	Writer    *Writer
	Resolver  *Resolver
	Augmenter *Augmenter

	store store.Store
}

// New builds a Manager. Store and Native are required.
func New(opts Options) (*Manager, error) {
	if opts.Store == nil {
		return nil, errors.New("store is required")
	}
	if opts.Native == nil {
		return nil, errors.New("native crash capture subsystem is required")
	}

	aug := NewAugmenter(opts.Store, opts.CacheSize, opts.Deps)
	res := NewResolver(opts.Store, opts.Native, opts.OrphanHorizon, opts.Deps)
	res.InUse = aug.InUse

	return &Manager{
		Writer:    NewWriter(opts.Store, opts.Deps),
		Resolver:  res,
		Augmenter: aug,
		store:     opts.Store,
	}, nil
}

// Store returns the underlying store.
func (m *Manager) Store() store.Store { return m.store }

// Close releases the store.
func (m *Manager) Close() error {
	return m.store.Close()
}
