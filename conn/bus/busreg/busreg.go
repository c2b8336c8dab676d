// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package busreg defines the bus interface factory.
//
// Backends register a Creator under a type tag. A description line is turned
// into a concrete bus.Interface by the Creator registered for its first word.
//
// Backends register in the process wide factory returned by Default(),
// usually from their periph driver Init(). Tests and embedders can create
// their own Factory with New().
package busreg

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"periph.io/x/crate/conn/bus"
	"periph.io/x/crate/conn/bus/desc"
)

// Creator creates a bus.Interface from its configuration.
//
// configuration is free text with no format imposed by the factory. A
// Creator must reject malformed configuration by returning an error, without
// leaking anything partially constructed.
type Creator interface {
	Create(typ, configuration string) (bus.Interface, error)
}

// CreatorFunc adapts a function into a Creator.
type CreatorFunc func(typ, configuration string) (bus.Interface, error)

// Create implements Creator.
func (c CreatorFunc) Create(typ, configuration string) (bus.Interface, error) {
	return c(typ, configuration)
}

// Factory maps type tags to Creator.
//
// It is safe for concurrent use. It doesn't cache the interfaces created and
// doesn't own the registered creators.
type Factory struct {
	mu       sync.RWMutex
	creators map[string]Creator
}

// New returns an empty Factory.
func New() *Factory {
	return &Factory{creators: map[string]Creator{}}
}

// Add registers c for typ.
//
// A previous registration for typ is replaced.
func (f *Factory) Add(typ string, c Creator) error {
	if typ == "" {
		return errors.New("busreg: empty type")
	}
	if desc.FirstWord(typ) != typ {
		return errors.New("busreg: type " + strconv.Quote(typ) + " contains blanks")
	}
	if c == nil {
		return errors.New("busreg: nil creator for " + strconv.Quote(typ))
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.creators == nil {
		f.creators = map[string]Creator{}
	}
	f.creators[typ] = c
	return nil
}

// Lookup returns the Creator registered for typ, if any.
func (f *Factory) Lookup(typ string) (Creator, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	c, ok := f.creators[typ]
	return c, ok
}

// Types returns the registered type tags, sorted.
func (f *Factory) Types() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, 0, len(f.creators))
	for k := range f.creators {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Create returns the interface described by description.
//
// The first word of description selects the Creator; it is called with the
// rest of the line, leading blanks removed. description must already be
// stripped of comments and surrounding blanks, see desc.Clean().
//
// The error wraps bus.ErrInvalidInterfaceType when no Creator is registered
// for the type or when the Creator failed.
func (f *Factory) Create(description string) (bus.Interface, error) {
	typ, cfg := desc.Split(description)
	c, ok := f.Lookup(typ)
	if !ok {
		return nil, fmt.Errorf("%w %q: no creator registered", bus.ErrInvalidInterfaceType, typ)
	}
	i, err := c.Create(typ, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", bus.ErrInvalidInterfaceType, typ, err)
	}
	if i == nil {
		return nil, fmt.Errorf("%w %q: creator returned nothing", bus.ErrInvalidInterfaceType, typ)
	}
	return i, nil
}

// Default returns the process wide factory.
func Default() *Factory {
	return defaultFactory
}

// Register registers c for typ in the process wide factory.
func Register(typ string, c Creator) error {
	return defaultFactory.Add(typ, c)
}

// MustRegister calls Register and panics on failure.
//
// It is meant to be used by backends at initialization time.
func MustRegister(typ string, c Creator) {
	if err := Register(typ, c); err != nil {
		panic(err)
	}
}

var defaultFactory = New()
