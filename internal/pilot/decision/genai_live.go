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
	"strings"
	"sync"

	"google.golang.org/genai"
)

var (
	_ LiveDialer = (*genaiDialer)(nil)
	_ LiveConn   = (*genaiConn)(nil)
)

type genaiDialer struct {
	live   *genai.Live
	model  string
	config *genai.LiveConnectConfig
}

// NewGenaiDialer dials live sessions with set_rc_controls declared.
func NewGenaiDialer(client *genai.Client, model, modality string) LiveDialer {
	if !strings.Contains(model, "/") {
		model = "models/" + model
	}
	m := genai.ModalityText
	if strings.EqualFold(modality, ModalityAudio) {
		m = genai.ModalityAudio
	}
	return &genaiDialer{
		live:  client.Live,
		model: model,
		config: &genai.LiveConnectConfig{
			ResponseModalities: []genai.Modality{m},
			Tools:              []*genai.Tool{ControlsTool()},
		},
	}
}

func (d *genaiDialer) Dial(ctx context.Context) (LiveConn, error) {
	s, err := d.live.Connect(ctx, d.model, d.config)
	if err != nil {
		return nil, err
	}
	return &genaiConn{session: s}, nil
}

// genaiConn serializes writes; the underlying websocket allows one writer at a time.
type genaiConn struct {
	session *genai.Session

	wmu       sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func (c *genaiConn) SendClientText(_ context.Context, text string, turnComplete bool) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.session.SendClientContent(genai.LiveClientContentInput{
		Turns:        []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
		TurnComplete: genai.Ptr(turnComplete),
	})
}

func (c *genaiConn) SendMedia(_ context.Context, m Media) error {
	blob := &genai.Blob{Data: m.Data, MIMEType: m.MIMEType}
	input := genai.LiveRealtimeInput{Video: blob}
	if strings.HasPrefix(m.MIMEType, "audio/") {
		input = genai.LiveRealtimeInput{Audio: blob}
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.session.SendRealtimeInput(input)
}

func (c *genaiConn) SendToolResponse(_ context.Context, id, name string, response map[string]any) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.session.SendToolResponse(genai.LiveToolResponseInput{
		FunctionResponses: []*genai.FunctionResponse{{ID: id, Name: name, Response: response}},
	})
}

func (c *genaiConn) Receive() (*ServerMessage, error) {
	msg, err := c.session.Receive()
	if err != nil {
		return nil, err
	}
	return convertServerMessage(msg), nil
}

func (c *genaiConn) Close() error {
	c.closeOnce.Do(func() { c.closeErr = c.session.Close() })
	return c.closeErr
}

func convertServerMessage(msg *genai.LiveServerMessage) *ServerMessage {
	out := &ServerMessage{}
	if msg == nil {
		return out
	}
	if msg.ToolCall != nil {
		for _, fc := range msg.ToolCall.FunctionCalls {
			if fc == nil {
				continue
			}
			out.ToolCalls = append(out.ToolCalls, FunctionCall{ID: fc.ID, Name: fc.Name, Args: fc.Args})
		}
	}
	if sc := msg.ServerContent; sc != nil {
		out.TurnComplete = sc.TurnComplete
		if sc.ModelTurn != nil {
			var b strings.Builder
			for _, p := range sc.ModelTurn.Parts {
				if p != nil {
					b.WriteString(p.Text)
				}
			}
			out.Text = b.String()
		}
	}
	return out
}
