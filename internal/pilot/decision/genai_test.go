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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/gemo-rc/gemo/internal/pilot/core"
	"github.com/gemo-rc/gemo/pkg/options"
)

func TestBatchAgainstGenaiClient(t *testing.T) {
	var (
		path string
		body map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates":[{
				"content":{"role":"model","parts":[
					{"functionCall":{"name":"set_rc_controls","args":{"drive":"FORWARD","steer":"RIGHT","reason":"curve"}}}
				]},
				"finishReason":"STOP"
			}]
		}`))
	}))
	defer srv.Close()

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      "test-key",
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: srv.URL, APIVersion: "v1beta"},
	})
	require.NoError(t, err)

	b := NewBatchRequester(client.Models, options.NewDecisionOptions(), newFakeClock())
	cmd := b.DecideOnce(context.Background(), testFrame())

	assert.Equal(t, core.Command{Drive: core.DriveForward, Steer: core.SteerRight, Reason: "curve"}, cmd)
	assert.Equal(t, "/v1beta/models/"+options.DefaultBatchModel+":generateContent", path)

	toolConfig, _ := body["toolConfig"].(map[string]any)
	fcc, _ := toolConfig["functionCallingConfig"].(map[string]any)
	assert.Equal(t, "ANY", fcc["mode"])
}

func TestConvertServerMessage(t *testing.T) {
	msg := convertServerMessage(&genai.LiveServerMessage{
		ToolCall: &genai.LiveServerToolCall{FunctionCalls: []*genai.FunctionCall{
			nil,
			{ID: "c1", Name: FunctionName, Args: map[string]any{"drive": "STOP"}},
		}},
		ServerContent: &genai.LiveServerContent{
			TurnComplete: true,
			ModelTurn:    genai.NewContentFromText("ok", genai.RoleModel),
		},
	})

	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, "c1", msg.ToolCalls[0].ID)
	assert.True(t, msg.TurnComplete)
	assert.Equal(t, "ok", msg.Text)

	assert.Equal(t, &ServerMessage{}, convertServerMessage(nil))
}

func TestCredentials(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("VERTEX_PROJECT", "")
	t.Setenv("VERTEX_LOCATION", "")

	_, err := LoadCredentials()
	assert.ErrorIs(t, err, ErrNoCredentials)

	t.Setenv("GEMINI_API_KEY", "k")
	c, err := LoadCredentials()
	require.NoError(t, err)
	assert.Equal(t, "gemini-api", c.Backend())
	assert.Equal(t, genai.BackendGeminiAPI, c.ClientConfig().Backend)

	t.Setenv("VERTEX_PROJECT", "p")
	_, err = LoadCredentials()
	require.NoError(t, err, "an API key alone is enough")

	t.Setenv("VERTEX_LOCATION", "us-central1")
	c, err = LoadCredentials()
	require.NoError(t, err)
	assert.Equal(t, "vertex", c.Backend())
	assert.Equal(t, genai.BackendVertexAI, c.ClientConfig().Backend)
}

func TestSilence(t *testing.T) {
	assert.Len(t, Silence(100*time.Millisecond), 3200)
	assert.Empty(t, Silence(0))
	for _, b := range Silence(10 * time.Millisecond) {
		require.Zero(t, b)
	}
}

func TestCommandFromCall(t *testing.T) {
	cmd, err := commandFromCall(FunctionName, map[string]any{"drive": "FORWARD", "steer": "SIDEWAYS"})
	require.NoError(t, err)
	assert.Equal(t, core.Command{Drive: core.DriveForward, Steer: core.SteerCenter}, cmd)

	cmd, err = commandFromCall("other", map[string]any{"drive": "FORWARD"})
	assert.ErrorIs(t, err, errUnexpectedFunction)
	assert.Equal(t, core.FailSafe(), cmd)

	tool := ControlsTool()
	require.Len(t, tool.FunctionDeclarations, 1)
	assert.Equal(t, []string{"drive", "steer"}, tool.FunctionDeclarations[0].Parameters.Required)
}
