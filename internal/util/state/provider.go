// Copyright 2024 Litewarden Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Provider provides access to toolkit process state.
//
// All provider's methods are thread-safe.
type Provider struct {
	filename string

	rw sync.RWMutex
	s  *State
}

// NewProvider creates a new Provider that stores state in the given file.
//
// If filename is empty, then the state is not persisted.
func NewProvider(filename string) (*Provider, error) {
	p := &Provider{
		filename: filename,
		s:        new(State),
	}

	if p.filename != "" {
		b, _ := os.ReadFile(p.filename)
		_ = json.Unmarshal(b, p.s)
	}

	p.s.fill()

	// Simply overwrite state to handle all errors and edge cases
	// like missing directory, corrupted file, invalid UUID, etc.,
	// and also to check permissions.
	if err := p.persist(); err != nil {
		return nil, fmt.Errorf("failed to persist state: %w", err)
	}

	return p, nil
}

// Get returns a copy of the current process state.
//
// It is okay to call this function often.
// The caller should not cache result; Provider does everything needed itself.
func (p *Provider) Get() *State {
	p.rw.RLock()
	defer p.rw.RUnlock()

	return p.s.deepCopy()
}

// Update updates the state with the given function and persists it.
func (p *Provider) Update(update func(s *State)) error {
	p.rw.Lock()
	defer p.rw.Unlock()

	update(p.s)
	p.s.fill()

	return p.persist()
}

// persist writes the state to the file, if any.
//
// It does not lock the mutex.
func (p *Provider) persist() error {
	if p.filename == "" {
		return nil
	}

	b, err := json.Marshal(p.s)
	if err != nil {
		return err
	}

	if err = os.MkdirAll(filepath.Dir(p.filename), 0o777); err != nil && !os.IsExist(err) {
		return err
	}

	return os.WriteFile(p.filename, b, 0o666)
}
