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

package grpc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
)

func TestUnaryServerTimeout(t *testing.T) {
	interceptor := UnaryServerTimeout(time.Second)
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	var got time.Time
	_, err := interceptor(context.Background(), nil, info, func(ctx context.Context, _ any) (any, error) {
		deadline, ok := ctx.Deadline()
		require.True(t, ok)
		got = deadline
		return nil, nil
	})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Second), got, 200*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	want, _ := ctx.Deadline()
	_, err = interceptor(ctx, nil, info, func(ctx context.Context, _ any) (any, error) {
		deadline, _ := ctx.Deadline()
		assert.Equal(t, want, deadline, "an existing deadline is kept")
		return nil, nil
	})
	require.NoError(t, err)
}
