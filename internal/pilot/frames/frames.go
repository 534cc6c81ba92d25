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
	"errors"
	"fmt"

	"github.com/gemo-rc/gemo/internal/pilot/core"
	"github.com/gemo-rc/gemo/pkg/options"
)

// JPEGMIMEType is the MIME type of every frame produced here.
const JPEGMIMEType = "image/jpeg"

var (
	jpegMagic = []byte{0xff, 0xd8}

	errNotJPEG = errors.New("frame is not a JPEG image")
)

// New builds the frame source selected by opts and checks it can produce frames.
func New(opts *options.FrameOptions) (core.FrameSource, error) {
	switch opts.Source {
	case options.FrameSourceExec:
		return NewExecSource(opts.Command)
	case options.FrameSourceDir:
		return NewDirSource(opts.Dir)
	case options.FrameSourceScreen:
		return NewScreenSource(opts.Display, opts.Quality)
	default:
		return nil, fmt.Errorf("unknown frame source %q", opts.Source)
	}
}

func checkJPEG(data []byte) error {
	if !bytes.HasPrefix(data, jpegMagic) {
		return errNotJPEG
	}
	return nil
}
