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

package options

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

const (
	ModeBatch = "batch"
	ModeLive  = "live"

	DefaultBatchModel = "gemini-3-flash-preview"
	DefaultLiveModel  = "gemini-2.5-flash-native-audio-preview-12-2025"
)

// DefaultPrompt is the task prompt sent with every batch request and as the
// live session's initialization turn.
const DefaultPrompt = "You are an autonomous RC car controller. " +
	"Analyze the front camera image and decide the safest drive/steer. " +
	"If uncertain, choose STOP and CENTER. " +
	"You MUST respond by calling function set_rc_controls. " +
	"The reason must be a short noun phrase, no punctuation."

var _ IOptions = (*DecisionOptions)(nil)

// DecisionOptions select and tune the decision transport.
type DecisionOptions struct {
	// Mode is "batch" or "live" and is fixed for the run.
	Mode string `json:"mode" mapstructure:"mode"`

	// Model overrides the per-mode default model.
	Model string `json:"model" mapstructure:"model"`

	Prompt string `json:"prompt" mapstructure:"prompt"`

	// Batch transport
	MaxRetries     int           `json:"max-retries" mapstructure:"max-retries"`
	RetryDelay     time.Duration `json:"retry-delay" mapstructure:"retry-delay"`
	RequestTimeout time.Duration `json:"request-timeout" mapstructure:"request-timeout"`
	Temperature    float32       `json:"temperature" mapstructure:"temperature"`
	ThinkingModels []string      `json:"thinking-models" mapstructure:"thinking-models"`
	ThinkingBudget int32         `json:"thinking-budget" mapstructure:"thinking-budget"`

	// Live transport
	ResponseTimeout  time.Duration `json:"response-timeout" mapstructure:"response-timeout"`
	ReconnectDelay   time.Duration `json:"reconnect-delay" mapstructure:"reconnect-delay"`
	QueueSize        int           `json:"queue-size" mapstructure:"queue-size"`
	ResponseModality string        `json:"response-modality" mapstructure:"response-modality"`
	SilenceDuration  time.Duration `json:"silence-duration" mapstructure:"silence-duration"`
}

// NewDecisionOptions creates DecisionOptions with default values.
func NewDecisionOptions() *DecisionOptions {
	return &DecisionOptions{
		Mode:             ModeBatch,
		Prompt:           DefaultPrompt,
		MaxRetries:       2,
		RetryDelay:       400 * time.Millisecond,
		RequestTimeout:   10 * time.Second,
		Temperature:      0.2,
		ThinkingModels:   []string{"gemini-3-pro-preview"},
		ThinkingBudget:   128,
		ResponseTimeout:  2500 * time.Millisecond,
		ReconnectDelay:   time.Second,
		QueueSize:        5,
		ResponseModality: "TEXT",
		SilenceDuration:  100 * time.Millisecond,
	}
}

// ResolvedModel returns the model to use for the configured mode.
func (o *DecisionOptions) ResolvedModel() string {
	if o.Model != "" {
		return o.Model
	}
	if o.Mode == ModeLive {
		return DefaultLiveModel
	}
	return DefaultBatchModel
}

func (o *DecisionOptions) Validate() []error {
	var errs []error

	switch o.Mode {
	case ModeBatch, ModeLive:
	default:
		errs = append(errs, fmt.Errorf("--decision.mode must be %q or %q, got %q", ModeBatch, ModeLive, o.Mode))
	}
	if strings.TrimSpace(o.Prompt) == "" {
		errs = append(errs, fmt.Errorf("--decision.prompt must not be empty"))
	}
	if o.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("--decision.max-retries must not be negative"))
	}
	if o.RetryDelay < 0 {
		errs = append(errs, fmt.Errorf("--decision.retry-delay must not be negative"))
	}
	if o.ResponseTimeout <= 0 {
		errs = append(errs, fmt.Errorf("--decision.response-timeout must be positive"))
	}
	if o.ReconnectDelay < 0 {
		errs = append(errs, fmt.Errorf("--decision.reconnect-delay must not be negative"))
	}
	if o.QueueSize < 1 {
		errs = append(errs, fmt.Errorf("--decision.queue-size must be at least 1"))
	}
	switch strings.ToUpper(o.ResponseModality) {
	case "TEXT", "AUDIO":
	default:
		errs = append(errs, fmt.Errorf("--decision.response-modality must be TEXT or AUDIO, got %q", o.ResponseModality))
	}

	return errs
}

func (o *DecisionOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Mode, "decision.mode", o.Mode, "Decision transport: 'batch' (request/response) or 'live' (streaming session).")
	fs.StringVar(&o.Model, "decision.model", o.Model, "Decision model. Empty selects the default model of the chosen mode.")
	fs.StringVar(&o.Prompt, "decision.prompt", o.Prompt, "Task prompt sent to the decision service.")

	fs.IntVar(&o.MaxRetries, "decision.max-retries", o.MaxRetries, "Batch: retries after a failed request.")
	fs.DurationVar(&o.RetryDelay, "decision.retry-delay", o.RetryDelay, "Batch: first backoff delay, doubled on every retry.")
	fs.DurationVar(&o.RequestTimeout, "decision.request-timeout", o.RequestTimeout, "Batch: timeout of a single request.")
	fs.Float32Var(&o.Temperature, "decision.temperature", o.Temperature, "Sampling temperature.")
	fs.StringSliceVar(&o.ThinkingModels, "decision.thinking-models", o.ThinkingModels, "Batch: models that get a thinking budget.")
	fs.Int32Var(&o.ThinkingBudget, "decision.thinking-budget", o.ThinkingBudget, "Batch: thinking budget for thinking models.")

	fs.DurationVar(&o.ResponseTimeout, "decision.response-timeout", o.ResponseTimeout, "Live: how long a cycle waits for a tool call.")
	fs.DurationVar(&o.ReconnectDelay, "decision.reconnect-delay", o.ReconnectDelay, "Live: cool-down before reconnecting a failed session.")
	fs.IntVar(&o.QueueSize, "decision.queue-size", o.QueueSize, "Live: outbound media queue capacity (oldest dropped on overflow).")
	fs.StringVar(&o.ResponseModality, "decision.response-modality", o.ResponseModality, "Live: TEXT or AUDIO. AUDIO adds a silent audio track.")
	fs.DurationVar(&o.SilenceDuration, "decision.silence-duration", o.SilenceDuration, "Live: length of the silent audio blob sent with each frame.")
}
