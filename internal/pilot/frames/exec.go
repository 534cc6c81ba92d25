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

package frames

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/gemo-rc/gemo/internal/pilot/core"
)

var _ core.FrameSource = (*ExecSource)(nil)

const waitDelay = 100 * time.Millisecond

// ExecSource runs a capture command per frame; the command prints one JPEG on stdout.
type ExecSource struct {
	name string
	args []string
}

func NewExecSource(command []string) (*ExecSource, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("capture command is empty")
	}
	if _, err := exec.LookPath(command[0]); err != nil {
		return nil, fmt.Errorf("capture command %q: %w", command[0], err)
	}
	return &ExecSource{name: command[0], args: command[1:]}, nil
}

func (s *ExecSource) Name() string { return "exec:" + s.name }

func (s *ExecSource) Capture(ctx context.Context) (*core.Frame, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.name, s.args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// A helper forked by the tool can keep stdout open after the kill.
	cmd.WaitDelay = waitDelay

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", s.name, err, strings.TrimSpace(stderr.String()))
	}
	data := stdout.Bytes()
	if err := checkJPEG(data); err != nil {
		return nil, fmt.Errorf("%s: %w", s.name, err)
	}
	return &core.Frame{Data: data, MIMEType: JPEGMIMEType, CapturedAt: time.Now()}, nil
}

func (s *ExecSource) Close() error { return nil }
