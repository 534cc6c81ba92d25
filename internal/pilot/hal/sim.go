// Copyright 2026 The Gemo Authors.
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

package hal

import (
	"sync"

	"github.com/gemo-rc/gemo/internal/pilot/core"
)

var _ core.MotorChannel = (*SimChannel)(nil)

// SimChannel is an in-memory motor channel. It records every state it enters.
type SimChannel struct {
	name string

	mu      sync.Mutex
	state   ChannelState
	history []ChannelState
}

func NewSimChannel(name string) *SimChannel {
	return &SimChannel{name: name}
}

func (s *SimChannel) Name() string { return s.name }

func (s *SimChannel) Stop() error {
	s.set(ChannelState{Direction: DirectionIdle})
	return nil
}

func (s *SimChannel) Forward(speed float64) error {
	s.set(ChannelState{Direction: DirectionForward, Speed: clamp(speed)})
	return nil
}

func (s *SimChannel) Reverse(speed float64) error {
	s.set(ChannelState{Direction: DirectionReverse, Speed: clamp(speed)})
	return nil
}

func (s *SimChannel) set(st ChannelState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
	s.history = append(s.history, st)
}

func (s *SimChannel) State() ChannelState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// History returns a copy of every state entered so far.
func (s *SimChannel) History() []ChannelState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ChannelState, len(s.history))
	copy(out, s.history)
	return out
}

// Energizations counts transitions into an energized state in direction dir.
func (s *SimChannel) Energizations(dir Direction) int {
	n := 0
	prev := ChannelState{Direction: DirectionIdle}
	for _, st := range s.History() {
		if st.Direction == dir && st.Energized() && (prev != st) {
			n++
		}
		prev = st
	}
	return n
}
