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

package decision

import (
	"context"

	"github.com/looplab/fsm"

	"github.com/gemo-rc/gemo/internal/pkg/metrics"
	fsmutil "github.com/gemo-rc/gemo/internal/pkg/util/fsm"
	"github.com/gemo-rc/gemo/pkg/log"
)

// Live session states.
const (
	StateDisconnected = "disconnected"
	StateConnecting   = "connecting"
	StateActive       = "active"
	StateClosing      = "closing"
)

const (
	eventDial        = "dial"
	eventEstablished = "established"
	eventFail        = "fail"
	eventClose       = "close"
	eventClosed      = "closed"
)

// AllStates lists the live session states.
var AllStates = []string{StateDisconnected, StateConnecting, StateActive, StateClosing}

// StateListener is told about every live session state change.
type StateListener func(from, to string)

type sessionStateMachine struct {
	*fsm.FSM
	listener StateListener
}

func newSessionStateMachine(listener StateListener) *sessionStateMachine {
	m := &sessionStateMachine{listener: listener}

	events := fsm.Events{
		{Name: eventDial, Src: []string{StateDisconnected}, Dst: StateConnecting},
		{Name: eventEstablished, Src: []string{StateConnecting}, Dst: StateActive},
		{Name: eventFail, Src: []string{StateConnecting, StateActive}, Dst: StateDisconnected},
		{Name: eventClose, Src: []string{StateConnecting, StateActive}, Dst: StateClosing},
		{Name: eventClosed, Src: []string{StateClosing}, Dst: StateDisconnected},
	}

	callbacks := fsm.Callbacks{
		"enter_state": fsmutil.WrapEvent(m.actionEnterState),
	}

	m.FSM = fsm.NewFSM(StateDisconnected, events, callbacks)
	metrics.SetSessionState(StateDisconnected, AllStates)
	return m
}

func (m *sessionStateMachine) actionEnterState(_ context.Context, e *fsm.Event) error {
	metrics.SetSessionState(e.Dst, AllStates)
	if m.listener != nil {
		m.listener(e.Src, e.Dst)
	}
	return nil
}

// fire runs event, ignoring events that do not apply to the current state.
func (m *sessionStateMachine) fire(ctx context.Context, event string) {
	if err := fsmutil.IgnoreNoTransition(m.Event(context.WithoutCancel(ctx), event)); err != nil {
		log.Debug("Ignored session event", "event", event, "state", m.Current(), "error", err)
	}
}
