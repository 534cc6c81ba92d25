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

package recorder

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gemo-rc/gemo/internal/pilot/core"
	"github.com/gemo-rc/gemo/pkg/options"
)

type object struct {
	key         string
	contentType string
	meta        map[string]string
	size        int
}

type memStore struct {
	mu      sync.Mutex
	objects []object
}

func (m *memStore) CheckBucket(context.Context) error { return nil }

func (m *memStore) Put(_ context.Context, key string, data []byte, contentType string, meta map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects = append(m.objects, object{key: key, contentType: contentType, meta: meta, size: len(data)})
	return nil
}

func TestRecorderSamplesEveryNth(t *testing.T) {
	store := &memStore{}
	r := New(store, "car-1", "run-9", 3)
	ctx := context.Background()

	for seq := uint64(1); seq <= 9; seq++ {
		c := core.Cycle{
			Seq: seq, Transport: "live",
			Command: core.Command{Drive: core.DriveForward, Steer: core.SteerRight, Reason: "bend"},
			Frame:   &core.Frame{Data: []byte{0xff, 0xd8, byte(seq)}, MIMEType: "image/jpeg"},
		}
		require.NoError(t, r.Record(ctx, c))
	}
	require.NoError(t, r.Record(ctx, core.Cycle{Seq: 12}), "cycles without a frame are skipped")

	require.Len(t, store.objects, 3)
	assert.Equal(t, "car-1/run-9/0000000003.jpg", store.objects[0].key)
	assert.Equal(t, "image/jpeg", store.objects[0].contentType)
	assert.Equal(t, map[string]string{
		"drive": "FORWARD", "steer": "RIGHT", "reason": "bend",
		"transport": "live", "seq": "3", "estop": "false",
	}, store.objects[0].meta)
	assert.Equal(t, "car-1/run-9/0000000009.jpg", store.objects[2].key)
}

func TestNewMinIOStore(t *testing.T) {
	s, err := NewMinIOStore(options.NewS3Options())
	require.NoError(t, err)
	assert.NotNil(t, s)

	_, err = NewMinIOStore(&options.S3Options{Endpoint: "http://bad endpoint"})
	assert.Error(t, err)
}
