// Copyright 2024-2026 Madhukar Beema. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

package hook

import "sync"

// Suspension is a scoped pause of one hook. While it is held the original
// function runs unpatched and other Restore/Redetour/Suspend calls for the
// same name block. It ends with either Resume (re-arm) or Release (stay
// unpatched); whichever comes first wins, later calls are no-ops.
//
//	s, err := reg.Suspend(name)
//	if err != nil { ... }
//	defer s.Resume()
type Suspension struct {
	r    *Registry
	e    *entry
	once sync.Once
}

// Suspend restores the named hook and holds its record until the returned
// Suspension ends. If restoring fails nothing is held.
func (r *Registry) Suspend(name string) (*Suspension, error) {
	e, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	if err := r.restoreLocked(e); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	return &Suspension{r: r, e: e}, nil
}

// Original is the address of the unpatched function.
func (s *Suspension) Original() uintptr {
	return s.e.rec.Original
}

// CallOriginal calls the unpatched function through the registry's Caller.
func (s *Suspension) CallOriginal(args ...uintptr) uintptr {
	return s.r.call(s.e.rec.Original, args...)
}

// Resume re-applies the hook and ends the suspension.
func (s *Suspension) Resume() error {
	var err error
	s.once.Do(func() {
		err = s.r.redetourLocked(s.e)
		s.e.mu.Unlock()
	})
	return err
}

// Release ends the suspension leaving the function unpatched. Calls to the
// original address run the original code from now on.
func (s *Suspension) Release() {
	s.once.Do(func() {
		s.e.mu.Unlock()
	})
}
