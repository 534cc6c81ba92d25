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
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gemo-rc/gemo/internal/pilot/core"
)

var _ core.FrameSource = (*DirSource)(nil)

// DirSource replays the JPEG files of a directory in name order, looping forever.
type DirSource struct {
	dir   string
	files []string

	mu   sync.Mutex
	next int
}

func NewDirSource(dir string) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read frame dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no JPEG files in %s", dir)
	}
	slices.Sort(files)
	return &DirSource{dir: dir, files: files}, nil
}

func (s *DirSource) Name() string { return "dir:" + s.dir }

func (s *DirSource) Capture(ctx context.Context) (*core.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	path := s.files[s.next]
	s.next = (s.next + 1) % len(s.files)
	s.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := checkJPEG(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &core.Frame{Data: data, MIMEType: JPEGMIMEType, CapturedAt: time.Now()}, nil
}

func (s *DirSource) Close() error { return nil }
