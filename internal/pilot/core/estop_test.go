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

package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEStopLatch(t *testing.T) {
	e := NewEStop()
	assert.False(t, e.Engaged())

	assert.True(t, e.Engage("mqtt", "operator"))
	assert.False(t, e.Engage("http", "again"), "engaging twice is a no-op")

	st := e.State()
	assert.True(t, st.Engaged)
	assert.Equal(t, "operator", st.Reason)
	assert.Equal(t, "mqtt", st.Source)

	assert.True(t, e.Set("http", false, ""))
	assert.False(t, e.Release("http"))
	assert.False(t, e.Engaged())
}
