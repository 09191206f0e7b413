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

package optimizer

// JournalMode represents SQLite journal modes.
type JournalMode string

// Journal modes.
const (
	JournalDelete   JournalMode = "DELETE"
	JournalTruncate JournalMode = "TRUNCATE"
	JournalPersist  JournalMode = "PERSIST"
	JournalMemory   JournalMode = "MEMORY"
	JournalWAL      JournalMode = "WAL"
	JournalOff      JournalMode = "OFF"
)

// SynchronousMode represents SQLite synchronous settings.
type SynchronousMode string

// Synchronous modes.
const (
	SynchronousOff    SynchronousMode = "OFF"
	SynchronousNormal SynchronousMode = "NORMAL"
	SynchronousFull   SynchronousMode = "FULL"
	SynchronousExtra  SynchronousMode = "EXTRA"
)

// ordinal returns the numeric value PRAGMA synchronous reports for the mode.
func (m SynchronousMode) ordinal() int64 {
	switch m {
	case SynchronousOff:
		return 0
	case SynchronousNormal:
		return 1
	case SynchronousFull:
		return 2
	case SynchronousExtra:
		return 3
	default:
		return 1
	}
}

// AutoVacuumMode represents SQLite auto-vacuum modes.
type AutoVacuumMode string

// Auto-vacuum modes.
const (
	AutoVacuumNone        AutoVacuumMode = "NONE"
	AutoVacuumFull        AutoVacuumMode = "FULL"
	AutoVacuumIncremental AutoVacuumMode = "INCREMENTAL"
)

// ordinal returns the numeric value PRAGMA auto_vacuum reports for the mode.
func (m AutoVacuumMode) ordinal() int64 {
	switch m {
	case AutoVacuumNone:
		return 0
	case AutoVacuumFull:
		return 1
	case AutoVacuumIncremental:
		return 2
	default:
		return 0
	}
}

// TempStoreMode represents SQLite temp_store settings.
type TempStoreMode string

// Temp store modes.
const (
	TempStoreDefault TempStoreMode = "DEFAULT"
	TempStoreFile    TempStoreMode = "FILE"
	TempStoreMemory  TempStoreMode = "MEMORY"
)

// ordinal returns the numeric value PRAGMA temp_store reports for the mode.
func (m TempStoreMode) ordinal() int64 {
	switch m {
	case TempStoreDefault:
		return 0
	case TempStoreFile:
		return 1
	case TempStoreMemory:
		return 2
	default:
		return 0
	}
}
