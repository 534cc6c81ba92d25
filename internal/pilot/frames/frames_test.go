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
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gemo-rc/gemo/pkg/options"
)

func writeJPEG(t *testing.T, path string, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return buf.Bytes()
}

func TestDirSourceLoops(t *testing.T) {
	dir := t.TempDir()
	a := writeJPEG(t, filepath.Join(dir, "001.jpg"), color.Black)
	b := writeJPEG(t, filepath.Join(dir, "002.JPEG"), color.White)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o600))

	src, err := New(&options.FrameOptions{Source: options.FrameSourceDir, Dir: dir})
	require.NoError(t, err)
	defer src.Close()

	var got [][]byte
	for i := 0; i < 3; i++ {
		f, err := src.Capture(context.Background())
		require.NoError(t, err)
		assert.Equal(t, JPEGMIMEType, f.MIMEType)
		assert.False(t, f.CapturedAt.IsZero())
		got = append(got, f.Data)
	}
	assert.Equal(t, [][]byte{a, b, a}, got)
}

func TestDirSourceRejectsBadInput(t *testing.T) {
	_, err := NewDirSource(t.TempDir())
	assert.Error(t, err, "empty directory")

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fake.jpg"), []byte("not a jpeg"), 0o600))
	src, err := NewDirSource(dir)
	require.NoError(t, err)
	_, err = src.Capture(context.Background())
	assert.ErrorIs(t, err, errNotJPEG)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.Capture(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frame.jpg")
	want := writeJPEG(t, path, color.Gray{Y: 128})

	src, err := NewExecSource([]string{"cat", path})
	if err != nil {
		t.Skip("cat not available")
	}
	f, err := src.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, f.Data)

	bad, err := NewExecSource([]string{"cat", filepath.Join(dir, "missing.jpg")})
	require.NoError(t, err)
	_, err = bad.Capture(context.Background())
	assert.Error(t, err)

	_, err = NewExecSource([]string{"gemo-no-such-camera-tool"})
	assert.Error(t, err)
	_, err = NewExecSource(nil)
	assert.Error(t, err)
}

func TestExecSourceHonoursDeadline(t *testing.T) {
	src, err := NewExecSource([]string{"sleep", "5"})
	if err != nil {
		t.Skip("sleep not available")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = src.Capture(ctx)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestNewUnknownSource(t *testing.T) {
	_, err := New(&options.FrameOptions{Source: "v4l"})
	assert.Error(t, err)
}
