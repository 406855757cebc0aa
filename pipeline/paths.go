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

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Phase selects which stages Run executes.
type Phase string

const (
	PhaseInitial Phase = "initial"
	PhaseDense   Phase = "dense"
	PhaseSparse  Phase = "sparse"
	PhaseAll     Phase = "all"
)

// Phases lists the accepted phase names.
var Phases = []Phase{PhaseInitial, PhaseDense, PhaseSparse, PhaseAll}

// DefaultBaseName prefixes the files written by the initial phase.
const DefaultBaseName = "output"

const (
	chunksSuffix   = "_chunks"
	denseSuffix    = "_chunks_with_embeddings"
	sparseSuffix   = "_chunks_with_embeddings_sparse"
	snapshotSuffix = "_temp_embeddings"
)

// ParsePhase validates a phase name.
func ParsePhase(s string) (Phase, error) {
	p := Phase(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Phases {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPhase, s)
}

func (p Phase) runsInitial() bool { return p == PhaseInitial || p == PhaseAll }
func (p Phase) runsDense() bool   { return p == PhaseDense || p == PhaseAll }
func (p Phase) runsSparse() bool  { return p == PhaseSparse || p == PhaseAll }

// Files holds the paths a run reads and writes.
type Files struct {
	Chunks        string
	Dense         string
	DenseSnapshot string
	Sparse        string
}

// Paths derives the phase files in outputDir. For the dense and sparse
// phases the base name is taken from input with a trailing
// _chunks_with_embeddings or _chunks removed.
func Paths(outputDir string, phase Phase, input string) Files {
	base := DefaultBaseName
	if phase == PhaseDense || phase == PhaseSparse {
		name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
		switch {
		case strings.HasSuffix(name, denseSuffix):
			base = strings.TrimSuffix(name, denseSuffix)
		case strings.HasSuffix(name, chunksSuffix):
			base = strings.TrimSuffix(name, chunksSuffix)
		}
	}
	dense := filepath.Join(outputDir, base+denseSuffix+".json")
	return Files{
		Chunks:        filepath.Join(outputDir, base+chunksSuffix+".json"),
		Dense:         dense,
		DenseSnapshot: strings.TrimSuffix(dense, ".json") + snapshotSuffix + ".json",
		Sparse:        filepath.Join(outputDir, base+sparseSuffix+".json"),
	}
}
