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
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider(t *testing.T) {
	t.Parallel()

	filename := filepath.Join(t.TempDir(), "state.json")

	p1, err := NewProvider(filename)
	require.NoError(t, err)

	s1 := p1.Get()
	_, err = uuid.Parse(s1.UUID)
	require.NoError(t, err)
	assert.Empty(t, s1.EngineVersion)

	err = p1.Update(func(s *State) { s.EngineVersion = "3.41.2" })
	require.NoError(t, err)

	// a different provider over the same file sees the persisted state
	p2, err := NewProvider(filename)
	require.NoError(t, err)

	s2 := p2.Get()
	assert.Equal(t, s1.UUID, s2.UUID)
	assert.Equal(t, "3.41.2", s2.EngineVersion)

	// returned copies must be independent
	s2.EngineVersion = "changed"
	assert.Equal(t, "3.41.2", p2.Get().EngineVersion)
}

func TestProviderEphemeral(t *testing.T) {
	t.Parallel()

	p, err := NewProvider("")
	require.NoError(t, err)

	s := p.Get()
	_, err = uuid.Parse(s.UUID)
	require.NoError(t, err)
}
