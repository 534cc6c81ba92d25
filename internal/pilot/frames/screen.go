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
	"image/jpeg"
	"time"

	"github.com/kbinani/screenshot"

	"github.com/gemo-rc/gemo/internal/pilot/core"
)

var _ core.FrameSource = (*ScreenSource)(nil)

// ScreenSource captures a desktop display, e.g. a simulator window.
type ScreenSource struct {
	display int
	quality int
}

func NewScreenSource(display, quality int) (*ScreenSource, error) {
	n := screenshot.NumActiveDisplays()
	if display < 0 || display >= n {
		return nil, fmt.Errorf("display %d not available (%d active)", display, n)
	}
	return &ScreenSource{display: display, quality: quality}, nil
}

func (s *ScreenSource) Name() string { return fmt.Sprintf("screen:%d", s.display) }

func (s *ScreenSource) Capture(ctx context.Context) (*core.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := screenshot.CaptureDisplay(s.display)
	if err != nil {
		return nil, fmt.Errorf("capture display %d: %w", s.display, err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: s.quality}); err != nil {
		return nil, fmt.Errorf("encode display %d: %w", s.display, err)
	}
	return &core.Frame{Data: buf.Bytes(), MIMEType: JPEGMIMEType, CapturedAt: time.Now()}, nil
}

func (s *ScreenSource) Close() error { return nil }
