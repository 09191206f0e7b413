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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litewarden/litewarden/internal/util/teststress"
	"github.com/litewarden/litewarden/internal/util/testutil"
)

func TestMutexExclusion(t *testing.T) {
	t.Parallel()

	ctx := testutil.Ctx(t)
	m := NewMutex()

	// incremented without atomics; only mutual exclusion keeps it correct
	var counter int
	var runs int

	teststress.Stress(t, func(ready chan<- struct{}, start <-chan struct{}) {
		ready <- struct{}{}
		<-start

		require.NoError(t, m.Lock(ctx))

		counter++
		runs++

		m.Unlock()
	})

	assert.Equal(t, runs, counter)
}

func TestMutexFIFO(t *testing.T) {
	t.Parallel()

	ctx := testutil.Ctx(t)
	m := NewMutex()

	require.NoError(t, m.Lock(ctx))

	const waiters = 10

	var mu sync.Mutex
	var order []int

	var wg sync.WaitGroup

	for i := 0; i < waiters; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			require.NoError(t, m.Lock(ctx))

			mu.Lock()
			order = append(order, i)
			mu.Unlock()

			m.Unlock()
		}(i)

		// wait until the goroutine is queued so the arrival order is known
		for {
			m.mu.Lock()
			queued := len(m.waiters)
			m.mu.Unlock()

			if queued > i {
				break
			}

			time.Sleep(time.Millisecond)
		}
	}

	m.Unlock()
	wg.Wait()

	require.Len(t, order, waiters)

	for i, v := range order {
		assert.Equal(t, i, v)
	}
}

func TestMutexCancel(t *testing.T) {
	t.Parallel()

	m := NewMutex()

	require.NoError(t, m.Lock(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := m.Lock(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// the canceled waiter must not remain queued
	m.Unlock()

	require.NoError(t, m.Lock(context.Background()))
	m.Unlock()
}

func TestMutexUnlockIdle(t *testing.T) {
	t.Parallel()

	m := NewMutex()

	// unlocking a free mutex must not panic or corrupt state
	m.Unlock()

	require.NoError(t, m.Lock(context.Background()))
	m.Unlock()
}
