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

package decision

import "time"

const (
	silenceRate = 16000
	// SilenceMIMEType is the MIME type of the PCM silence sent alongside frames.
	SilenceMIMEType = "audio/pcm;rate=16000"
)

// Silence returns d of 16 kHz mono little-endian PCM16 silence.
func Silence(d time.Duration) []byte {
	samples := int(int64(silenceRate) * int64(d) / int64(time.Second))
	if samples < 0 {
		samples = 0
	}
	return make([]byte, samples*2)
}
