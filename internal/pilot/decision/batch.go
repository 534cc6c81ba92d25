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
	"slices"
	"time"

	"google.golang.org/genai"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/utils/clock"

	"github.com/gemo-rc/gemo/internal/pilot/core"
	"github.com/gemo-rc/gemo/internal/pkg/metrics"
	"github.com/gemo-rc/gemo/pkg/log"
	"github.com/gemo-rc/gemo/pkg/options"
)

// Generator is the part of genai.Models used by the batch transport.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

var _ Generator = (*genai.Models)(nil)

// BatchRequester obtains one decision per request.
type BatchRequester struct {
	gen     Generator
	model   string
	prompt  string
	config  *genai.GenerateContentConfig
	retries int
	backoff wait.Backoff
	timeout time.Duration
	clock   clock.Clock
	logger  log.Logger
}

func NewBatchRequester(gen Generator, opts *options.DecisionOptions, clk clock.Clock) *BatchRequester {
	model := opts.ResolvedModel()

	var budget int32
	if slices.Contains(opts.ThinkingModels, model) {
		budget = opts.ThinkingBudget
	}

	return &BatchRequester{
		gen:     gen,
		model:   model,
		prompt:  opts.Prompt,
		retries: opts.MaxRetries,
		backoff: wait.Backoff{
			Duration: opts.RetryDelay,
			Factor:   2,
			Steps:    opts.MaxRetries + 1,
		},
		timeout: opts.RequestTimeout,
		clock:   clk,
		logger:  log.WithName("batch").WithValues("model", model),
		config: &genai.GenerateContentConfig{
			Temperature:    genai.Ptr(opts.Temperature),
			ThinkingConfig: &genai.ThinkingConfig{ThinkingBudget: genai.Ptr(budget)},
			Tools:          []*genai.Tool{ControlsTool()},
			ToolConfig: &genai.ToolConfig{
				FunctionCallingConfig: &genai.FunctionCallingConfig{
					Mode:                 genai.FunctionCallingConfigModeAny,
					AllowedFunctionNames: []string{FunctionName},
				},
			},
		},
	}
}

func (b *BatchRequester) Model() string { return b.model }

// DecideOnce sends the frame and returns the decision. Errors are retried
// with exponential backoff and end in the fail-safe command.
func (b *BatchRequester) DecideOnce(ctx context.Context, frame *core.Frame) core.Command {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(b.prompt),
			genai.NewPartFromBytes(frame.Data, frame.MIMEType),
		}, genai.RoleUser),
	}

	backoff := b.backoff
	for attempt := 0; ; attempt++ {
		resp, err := b.generate(ctx, contents)
		if err == nil {
			cmd, perr := parseResponse(resp)
			if perr != nil {
				b.logger.Warn("Discarding decision", "seq", frame.Seq, "error", perr)
			}
			return cmd
		}

		if attempt >= b.retries || ctx.Err() != nil {
			b.logger.Error(err, "Batch request failed", "seq", frame.Seq, "attempts", attempt+1)
			metrics.BatchFailures.Inc()
			return core.FailSafe()
		}

		delay := backoff.Step()
		b.logger.Warn("Batch request failed, retrying", "seq", frame.Seq, "attempt", attempt+1, "delay", delay, "error", err)
		metrics.BatchRetries.Inc()
		if !b.sleep(ctx, delay) {
			metrics.BatchFailures.Inc()
			return core.FailSafe()
		}
	}
}

func (b *BatchRequester) generate(ctx context.Context, contents []*genai.Content) (*genai.GenerateContentResponse, error) {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}
	return b.gen.GenerateContent(ctx, b.model, contents, b.config)
}

func (b *BatchRequester) sleep(ctx context.Context, d time.Duration) bool {
	t := b.clock.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C():
		return true
	case <-ctx.Done():
		return false
	}
}

// parseResponse reads the first function call of the first candidate.
func parseResponse(resp *genai.GenerateContentResponse) (core.Command, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return core.FailSafe(), errNoToolCall
	}
	c := resp.Candidates[0]
	if c == nil || c.Content == nil {
		return core.FailSafe(), errNoToolCall
	}
	for _, part := range c.Content.Parts {
		if part == nil || part.FunctionCall == nil {
			continue
		}
		return commandFromCall(part.FunctionCall.Name, part.FunctionCall.Args)
	}
	return core.FailSafe(), errNoToolCall
}

var _ core.Decider = (*batchDecider)(nil)

type batchDecider struct {
	*BatchRequester
}

func (d *batchDecider) Transport() string { return options.ModeBatch }

func (d *batchDecider) Decide(ctx context.Context, frame *core.Frame) core.Command {
	return d.DecideOnce(ctx, frame)
}

func (d *batchDecider) Start(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (d *batchDecider) Ready() bool  { return true }
func (d *batchDecider) Close() error { return nil }
