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

	"github.com/caarlos0/env/v11"
	"google.golang.org/genai"
)

// ErrNoCredentials means neither the Gemini API key nor a Vertex project/location is set.
var ErrNoCredentials = errors.New("set GEMINI_API_KEY, or VERTEX_PROJECT and VERTEX_LOCATION")

// Credentials select the Gemini backend. Vertex wins when both are present.
type Credentials struct {
	APIKey   string `env:"GEMINI_API_KEY"`
	Project  string `env:"VERTEX_PROJECT"`
	Location string `env:"VERTEX_LOCATION"`
}

// LoadCredentials reads the credentials from the environment.
func LoadCredentials() (*Credentials, error) {
	c := &Credentials{}
	if err := env.Parse(c); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Credentials) Vertex() bool {
	return c.Project != "" && c.Location != ""
}

func (c *Credentials) Validate() error {
	if c.APIKey == "" && !c.Vertex() {
		return ErrNoCredentials
	}
	return nil
}

// Backend names the selected backend for logs.
func (c *Credentials) Backend() string {
	if c.Vertex() {
		return "vertex"
	}
	return "gemini-api"
}

// ClientConfig builds the genai client configuration for these credentials.
func (c *Credentials) ClientConfig() *genai.ClientConfig {
	if c.Vertex() {
		return &genai.ClientConfig{
			Backend:  genai.BackendVertexAI,
			Project:  c.Project,
			Location: c.Location,
		}
	}
	return &genai.ClientConfig{
		APIKey:      c.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1beta"},
	}
}

// NewClient creates a genai client.
func NewClient(ctx context.Context, c *Credentials) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, c.ClientConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}
	return client, nil
}
