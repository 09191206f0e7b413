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

// Package state stores toolkit process state.
package state

import (
	"github.com/google/uuid"

	"github.com/litewarden/litewarden/internal/util/must"
)

// State represents toolkit process state.
//
// Copy values, not pointers.
type State struct {
	UUID          string `json:"uuid"`
	EngineVersion string `json:"engineVersion,omitempty"`
}

// fill replaces invalid values with valid ones.
func (s *State) fill() {
	if _, err := uuid.Parse(s.UUID); err != nil {
		s.UUID = must.NotFail(uuid.NewRandom()).String()
	}
}

// deepCopy returns a deep copy of the state.
func (s *State) deepCopy() *State {
	if s == nil {
		return nil
	}

	res := *s

	return &res
}
