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
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/gemo-rc/gemo/internal/pilot/core"
	"github.com/gemo-rc/gemo/internal/pkg/metrics"
	"github.com/gemo-rc/gemo/pkg/log"
	"github.com/gemo-rc/gemo/pkg/options"
)

// FunctionCall is one function invocation requested by the service.
type FunctionCall struct {
	ID   string
	Name string
	Args map[string]any
}

// ServerMessage is one inbound live message.
type ServerMessage struct {
	ToolCalls    []FunctionCall
	TurnComplete bool
	Text         string
}

// LiveConn is an established live session.
type LiveConn interface {
	// SendClientText sends one user turn.
	SendClientText(ctx context.Context, text string, turnComplete bool) error
	SendMedia(ctx context.Context, m Media) error
	SendToolResponse(ctx context.Context, id, name string, response map[string]any) error
	// Receive blocks for the next message. It fails once the connection is closed.
	Receive() (*ServerMessage, error)
	Close() error
}

// LiveDialer opens live sessions.
type LiveDialer interface {
	Dial(ctx context.Context) (LiveConn, error)
}

var errSessionEnded = errors.New("live session ended")

// inboundBuffer bounds the messages held for the next Decide.
const inboundBuffer = 32

// ackPayload is the tool response sent for every accepted invocation.
var ackPayload = map[string]any{"result": "ok"}

type liveSession struct {
	id      string
	conn    LiveConn
	queue   *Queue
	inbound chan *ServerMessage
	done    chan struct{}
}

// LiveStreamer keeps one live session open and exchanges frames for decisions over it.
type LiveStreamer struct {
	dialer          LiveDialer
	prompt          string
	responseTimeout time.Duration
	reconnectDelay  time.Duration
	queueSize       int
	// silence is sent before each frame when non-nil.
	silence []byte

	state  *sessionStateMachine
	logger log.Logger

	mu     sync.Mutex
	active *liveSession
	// ready is closed while a session is active.
	ready chan struct{}

	decideMu sync.Mutex
}

func NewLiveStreamer(dialer LiveDialer, opts *options.DecisionOptions, listener StateListener) *LiveStreamer {
	l := &LiveStreamer{
		dialer:          dialer,
		prompt:          opts.Prompt,
		responseTimeout: opts.ResponseTimeout,
		reconnectDelay:  opts.ReconnectDelay,
		queueSize:       opts.QueueSize,
		logger:          log.WithName("live").WithValues("model", opts.ResolvedModel()),
		ready:           make(chan struct{}),
	}
	if strings.EqualFold(opts.ResponseModality, ModalityAudio) {
		l.silence = Silence(opts.SilenceDuration)
	}
	l.state = newSessionStateMachine(listener)
	return l
}

// State returns the current session state.
func (l *LiveStreamer) State() string {
	return l.state.Current()
}

// Ready reports whether a session is active.
func (l *LiveStreamer) Ready() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active != nil
}

// Run supervises the session until ctx ends, reconnecting after every failure.
func (l *LiveStreamer) Run(ctx context.Context) error {
	l.logger.Info("Live supervisor started", "reconnectDelay", l.reconnectDelay)
	wait.UntilWithContext(ctx, l.runSession, l.reconnectDelay)
	l.logger.Info("Live supervisor stopped")
	return nil
}

func (l *LiveStreamer) runSession(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			l.state.fire(ctx, eventFail)
			l.logger.Error(fmt.Errorf("%v", r), "Live session panicked")
		}
		if ctx.Err() == nil {
			metrics.LiveReconnects.Inc()
		}
	}()

	l.state.fire(ctx, eventDial)
	conn, err := l.dialer.Dial(ctx)
	if err != nil {
		l.state.fire(ctx, eventFail)
		l.logger.Error(err, "Failed to open live session")
		return
	}

	s := &liveSession{
		id:      uuid.NewString(),
		conn:    conn,
		queue:   NewQueue(l.queueSize),
		inbound: make(chan *ServerMessage, inboundBuffer),
		done:    make(chan struct{}),
	}
	logger := l.logger.WithValues("session", s.id)

	sessCtx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		l.deactivate(s)
		if err := conn.Close(); err != nil {
			logger.Debug("Closing live connection", "error", err)
		}
	}()

	if err := conn.SendClientText(sessCtx, l.prompt, true); err != nil {
		l.state.fire(ctx, eventFail)
		logger.Error(err, "Failed to send initialization turn")
		return
	}

	l.state.fire(ctx, eventEstablished)
	l.activate(s)
	logger.Info("Live session active")

	errCh := make(chan error, 2)
	go l.send(sessCtx, s, errCh)
	go l.receive(sessCtx, s, errCh)

	select {
	case <-ctx.Done():
		l.state.fire(ctx, eventClose)
		cancel()
		_ = conn.Close()
		l.state.fire(ctx, eventClosed)
		logger.Info("Live session closed")
	case err := <-errCh:
		l.state.fire(ctx, eventFail)
		logger.Error(err, "Live session lost", "queueDrops", s.queue.Dropped())
	}
}

// reportPanic turns a panic in a session goroutine into a session error.
func reportPanic(errCh chan<- error, who string) {
	if r := recover(); r != nil {
		errCh <- fmt.Errorf("%s panicked: %v", who, r)
	}
}

// send drains the session queue in enqueue order.
func (l *LiveStreamer) send(ctx context.Context, s *liveSession, errCh chan<- error) {
	defer reportPanic(errCh, "sender")
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-s.queue.C():
			if err := s.conn.SendMedia(ctx, m); err != nil {
				errCh <- fmt.Errorf("send %s: %w", m.MIMEType, err)
				return
			}
		}
	}
}

// receive forwards inbound messages. Stale messages are dropped when nobody
// reads them; a dropped invocation is still acknowledged.
func (l *LiveStreamer) receive(ctx context.Context, s *liveSession, errCh chan<- error) {
	defer reportPanic(errCh, "receiver")
	for {
		msg, err := s.conn.Receive()
		if err != nil {
			if ctx.Err() == nil {
				errCh <- fmt.Errorf("receive: %w", err)
			}
			return
		}
		if msg == nil {
			continue
		}
		select {
		case s.inbound <- msg:
		default:
			select {
			case stale := <-s.inbound:
				l.ackStale(ctx, s, stale)
			default:
			}
			s.inbound <- msg
		}
	}
}

func (l *LiveStreamer) ackStale(ctx context.Context, s *liveSession, msg *ServerMessage) {
	call, ok := matchCall(msg)
	if !ok {
		return
	}
	if err := s.conn.SendToolResponse(ctx, call.ID, call.Name, ackPayload); err != nil {
		l.logger.Error(err, "Failed to acknowledge stale tool call", "id", call.ID)
		return
	}
	l.logger.Warn("Acknowledged a tool call nobody waited for", "id", call.ID)
}

func (l *LiveStreamer) activate(s *liveSession) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.active = s
	close(l.ready)
}

func (l *LiveStreamer) deactivate(s *liveSession) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active != s {
		return
	}
	l.active = nil
	l.ready = make(chan struct{})
	close(s.done)
}

// waitActive returns the active session, waiting until ctx ends.
func (l *LiveStreamer) waitActive(ctx context.Context) *liveSession {
	for {
		l.mu.Lock()
		s, ready := l.active, l.ready
		l.mu.Unlock()
		if s != nil {
			return s
		}
		select {
		case <-ready:
		case <-ctx.Done():
			return nil
		}
	}
}

// Decide sends the frame on the active session and waits for the service to
// call set_rc_controls. Waiting for a session, the reply and the acknowledgment
// all share one response timeout.
func (l *LiveStreamer) Decide(ctx context.Context, frame *core.Frame) core.Command {
	l.decideMu.Lock()
	defer l.decideMu.Unlock()

	rctx, cancel := context.WithTimeout(ctx, l.responseTimeout)
	defer cancel()

	s := l.waitActive(rctx)
	if s == nil {
		return core.FailSafeBecause(core.ReasonDisconnected)
	}

	if l.silence != nil {
		l.enqueue(s, Media{Data: l.silence, MIMEType: SilenceMIMEType})
	}
	l.enqueue(s, Media{Data: frame.Data, MIMEType: frame.MIMEType})

	for {
		select {
		case <-rctx.Done():
			l.logger.Warn("No decision before the response timeout", "seq", frame.Seq, "timeout", l.responseTimeout)
			return core.FailSafeBecause(core.ReasonTimeout)
		case <-s.done:
			return core.FailSafeBecause(core.ReasonDisconnected)
		case msg := <-s.inbound:
			if call, ok := matchCall(msg); ok {
				cmd, err := commandFromCall(call.Name, call.Args)
				if err != nil {
					l.logger.Warn("Discarding decision", "seq", frame.Seq, "error", err)
				}
				if err := s.conn.SendToolResponse(rctx, call.ID, call.Name, ackPayload); err != nil {
					l.logger.Error(err, "Failed to acknowledge tool call", "id", call.ID)
				}
				return cmd
			}
			if msg.TurnComplete {
				return core.FailSafeBecause(core.ReasonNoToolCall)
			}
		}
	}
}

func (l *LiveStreamer) enqueue(s *liveSession, m Media) {
	if s.queue.Push(m) {
		metrics.LiveQueueDrops.Inc()
		l.logger.Debug("Outbound queue full, dropped oldest item", "mime", m.MIMEType)
	}
}

func matchCall(msg *ServerMessage) (FunctionCall, bool) {
	for _, c := range msg.ToolCalls {
		if c.Name == FunctionName {
			return c, true
		}
	}
	return FunctionCall{}, false
}

var _ core.Decider = (*liveDecider)(nil)

type liveDecider struct {
	*LiveStreamer
}

func (d *liveDecider) Transport() string { return options.ModeLive }

func (d *liveDecider) Start(ctx context.Context) error { return d.Run(ctx) }

func (d *liveDecider) Close() error { return nil }
