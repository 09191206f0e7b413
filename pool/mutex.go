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
	"context"
	"sync"
)

// Mutex is a mutual exclusion lock with a strict FIFO waiter queue.
//
// Unlike [sync.Mutex], Lock suspends on a channel instead of spinning,
// waiters are resumed in the order they arrived,
// and Unlock may be called from a different goroutine than the one that locked it.
// It is not reentrant.
type Mutex struct {
	mu      sync.Mutex
	locked  bool
	waiters []chan struct{}
}

// NewMutex creates a new unlocked Mutex.
func NewMutex() *Mutex {
	return new(Mutex)
}

// Lock suspends the caller until the mutex is free, then marks it held.
//
// If ctx is canceled while waiting, the waiter is removed from the queue
// and the context's error is returned.
// Lock never fails for any other reason.
func (m *Mutex) Lock(ctx context.Context) error {
	m.mu.Lock()

	if !m.locked {
		m.locked = true
		m.mu.Unlock()

		return nil
	}

	ch := make(chan struct{})
	m.waiters = append(m.waiters, ch)

	m.mu.Unlock()

	select {
	case <-ch:
		return nil

	case <-ctx.Done():
		m.mu.Lock()

		for i, w := range m.waiters {
			if w == ch {
				m.waiters = append(m.waiters[:i], m.waiters[i+1:]...)
				m.mu.Unlock()

				return ctx.Err()
			}
		}

		// Unlock handed the lock to us concurrently with cancellation;
		// pass it on so no other waiter is stuck
		m.unlockLocked()
		m.mu.Unlock()

		return ctx.Err()
	}
}

// Unlock marks the mutex free and resumes exactly one waiter, if any.
//
// Unlocking an already-unlocked Mutex is a no-op.
func (m *Mutex) Unlock() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.unlockLocked()
}

// unlockLocked hands the lock to the oldest waiter or marks the mutex free.
//
// It does not lock m.mu.
func (m *Mutex) unlockLocked() {
	if len(m.waiters) > 0 {
		ch := m.waiters[0]
		m.waiters = m.waiters[1:]
		close(ch)

		return
	}

	m.locked = false
}
