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
	"time"

	"github.com/spf13/pflag"
)

const (
	FrameSourceExec   = "exec"
	FrameSourceDir    = "dir"
	FrameSourceScreen = "screen"
)

var (
	_ IOptions = (*LoopOptions)(nil)
	_ IOptions = (*FrameOptions)(nil)
	_ IOptions = (*JournalOptions)(nil)
)

// LoopOptions pace the control loop.
type LoopOptions struct {
	FPS float64 `json:"fps" mapstructure:"fps"`

	// MaxCaptureFailures faults the loop after that many consecutive capture errors.
	MaxCaptureFailures int `json:"max-capture-failures" mapstructure:"max-capture-failures"`

	// CaptureTimeout bounds a single frame capture. Zero means two cycle periods.
	CaptureTimeout time.Duration `json:"capture-timeout" mapstructure:"capture-timeout"`
}

func NewLoopOptions() *LoopOptions {
	return &LoopOptions{
		FPS:                5,
		MaxCaptureFailures: 10,
	}
}

func (o *LoopOptions) Validate() []error {
	var errs []error
	if o.FPS <= 0 {
		errs = append(errs, fmt.Errorf("--loop.fps must be positive"))
	}
	if o.MaxCaptureFailures < 1 {
		errs = append(errs, fmt.Errorf("--loop.max-capture-failures must be at least 1"))
	}
	if o.CaptureTimeout < 0 {
		errs = append(errs, fmt.Errorf("--loop.capture-timeout must not be negative"))
	}
	return errs
}

func (o *LoopOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.Float64Var(&o.FPS, "loop.fps", o.FPS, "Target control frequency in cycles per second (clamped to at least 1).")
	fs.IntVar(&o.MaxCaptureFailures, "loop.max-capture-failures", o.MaxCaptureFailures, "Consecutive frame capture failures tolerated before stopping.")
	fs.DurationVar(&o.CaptureTimeout, "loop.capture-timeout", o.CaptureTimeout, "Deadline of one frame capture (0 uses two cycle periods).")
}

// FrameOptions select where camera frames come from.
type FrameOptions struct {
	Source string `json:"source" mapstructure:"source"`

	// Command is run once per frame by the exec source and must print one JPEG on stdout.
	Command []string `json:"command" mapstructure:"command"`

	// Dir holds the JPEG files replayed by the dir source.
	Dir string `json:"dir" mapstructure:"dir"`

	// Display is the screen index captured by the screen source.
	Display int `json:"display" mapstructure:"display"`

	Width  int `json:"width" mapstructure:"width"`
	Height int `json:"height" mapstructure:"height"`
	// Quality is the JPEG quality used when frames are encoded locally.
	Quality int `json:"quality" mapstructure:"quality"`
}

func NewFrameOptions() *FrameOptions {
	return &FrameOptions{
		Source: FrameSourceExec,
		Command: []string{
			"rpicam-still", "--nopreview", "--immediate",
			"--width", "640", "--height", "360",
			"--encoding", "jpg", "--output", "-",
		},
		Width:   640,
		Height:  360,
		Quality: 80,
	}
}

func (o *FrameOptions) Validate() []error {
	var errs []error
	switch o.Source {
	case FrameSourceExec:
		if len(o.Command) == 0 {
			errs = append(errs, fmt.Errorf("--frames.command is required for the exec source"))
		}
	case FrameSourceDir:
		if o.Dir == "" {
			errs = append(errs, fmt.Errorf("--frames.dir is required for the dir source"))
		}
	case FrameSourceScreen:
	default:
		errs = append(errs, fmt.Errorf("--frames.source must be one of exec, dir, screen; got %q", o.Source))
	}
	if o.Quality < 1 || o.Quality > 100 {
		errs = append(errs, fmt.Errorf("--frames.quality must be within [1, 100]"))
	}
	return errs
}

func (o *FrameOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Source, "frames.source", o.Source, "Frame source: exec, dir or screen.")
	fs.StringSliceVar(&o.Command, "frames.command", o.Command, "Capture command printing one JPEG to stdout (exec source).")
	fs.StringVar(&o.Dir, "frames.dir", o.Dir, "Directory of JPEG files to replay (dir source).")
	fs.IntVar(&o.Display, "frames.display", o.Display, "Display index to capture (screen source).")
	fs.IntVar(&o.Width, "frames.width", o.Width, "Frame width for sources that scale.")
	fs.IntVar(&o.Height, "frames.height", o.Height, "Frame height for sources that scale.")
	fs.IntVar(&o.Quality, "frames.quality", o.Quality, "JPEG quality for locally encoded frames.")
}

// JournalOptions configure the local SQLite decision journal.
type JournalOptions struct {
	// Path of the database file. Empty disables the journal.
	Path string `json:"path" mapstructure:"path"`
}

func NewJournalOptions() *JournalOptions {
	return &JournalOptions{}
}

func (o *JournalOptions) Validate() []error {
	return nil
}

func (o *JournalOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Path, "journal.path", o.Path, "SQLite file recording every control cycle (empty disables).")
}
