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

package topic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuilder(t *testing.T) {
	b := NewBuilder("gemo/v1")

	assert.Equal(t, "gemo/v1", b.Root())
	assert.Equal(t, "gemo/v1/telemetry/rc-001", b.Build("telemetry", "rc-001"))
	assert.Equal(t, "gemo/v1/estop/rc-001", b.Build("estop", "rc-001"))
	assert.Equal(t, "fleet/online/rc-002", NewBuilder("fleet").Build("online", "rc-002"))
}
