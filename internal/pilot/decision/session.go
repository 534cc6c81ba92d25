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
	"fmt"

	"k8s.io/utils/clock"

	"github.com/gemo-rc/gemo/internal/pilot/core"
	"github.com/gemo-rc/gemo/pkg/log"
	"github.com/gemo-rc/gemo/pkg/options"
)

// Live response modalities.
const (
	ModalityText  = "TEXT"
	ModalityAudio = "AUDIO"
)

// Config wires a Decider.
type Config struct {
	Options     *options.DecisionOptions
	Credentials *Credentials
	Clock       clock.Clock
	// OnStateChange is told about live session state changes.
	OnStateChange StateListener

	// Generator and Dialer replace the genai client when set.
	Generator Generator
	Dialer    LiveDialer
}

// New returns the transport selected by the decision mode.
func New(ctx context.Context, cfg *Config) (core.Decider, error) {
	opts := cfg.Options
	clk := cfg.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}

	needClient := (opts.Mode == options.ModeBatch && cfg.Generator == nil) ||
		(opts.Mode == options.ModeLive && cfg.Dialer == nil)

	gen, dialer := cfg.Generator, cfg.Dialer
	if needClient {
		if cfg.Credentials == nil {
			return nil, ErrNoCredentials
		}
		client, err := NewClient(ctx, cfg.Credentials)
		if err != nil {
			return nil, err
		}
		if gen == nil {
			gen = client.Models
		}
		if dialer == nil {
			dialer = NewGenaiDialer(client, opts.ResolvedModel(), opts.ResponseModality)
		}
		log.Info("Decision service client ready", "backend", cfg.Credentials.Backend())
	}

	switch opts.Mode {
	case options.ModeBatch:
		return &batchDecider{BatchRequester: NewBatchRequester(gen, opts, clk)}, nil
	case options.ModeLive:
		return &liveDecider{LiveStreamer: NewLiveStreamer(dialer, opts, cfg.OnStateChange)}, nil
	default:
		return nil, fmt.Errorf("unknown decision mode %q", opts.Mode)
	}
}
