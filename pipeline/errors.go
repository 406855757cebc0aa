// Copyright 2025 Poiesic Systems
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

package pipeline

import "errors"

var (
	// ErrUnknownPhase is returned for a phase name outside initial, dense, sparse and all.
	ErrUnknownPhase = errors.New("unknown phase")

	// ErrInputFormat is returned when the input file does not match the phase.
	ErrInputFormat = errors.New("unexpected input file type")

	// ErrStageNotConfigured is returned when a phase runs without its stage.
	ErrStageNotConfigured = errors.New("stage not configured")

	// ErrNoChunks is returned when a phase input holds no chunks.
	ErrNoChunks = errors.New("no chunks to process")

	// ErrEmptyOutput is returned when a phase did not produce its output file.
	ErrEmptyOutput = errors.New("phase output missing or empty")
)
