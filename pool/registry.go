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

package pool

import (
	"sync"
)

// LockRegistry owns one write [Mutex] per database file path.
//
// All pools against the same path must share a single registry,
// so that the write mutex is the single point of truth for
// "who may write right now" for that file within the process.
//
// It is an explicit value passed to pool configuration, not a package-level
// global, so tests and embedders control its lifetime.
type LockRegistry struct {
	mu    sync.Mutex
	locks map[string]*pathLock
}

// pathLock is a write mutex with the number of pools using it.
type pathLock struct {
	mutex *Mutex
	refs  int
}

// NewLockRegistry creates a new empty LockRegistry.
func NewLockRegistry() *LockRegistry {
	return &LockRegistry{
		locks: map[string]*pathLock{},
	}
}

// acquire returns the write mutex for the given database file path,
// creating it on first use, and increments its reference count.
func (r *LockRegistry) acquire(path string) *Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	pl := r.locks[path]
	if pl == nil {
		pl = &pathLock{
			mutex: NewMutex(),
		}
		r.locks[path] = pl
	}

	pl.refs++

	return pl.mutex
}

// release decrements the reference count for the given path,
// removing the mutex from the registry when the count reaches zero.
func (r *LockRegistry) release(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pl := r.locks[path]
	if pl == nil {
		return
	}

	pl.refs--
	if pl.refs <= 0 {
		delete(r.locks, path)
	}
}

// size returns the number of registered paths.
func (r *LockRegistry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.locks)
}
