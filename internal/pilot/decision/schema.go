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

import (
	"errors"

	"google.golang.org/genai"

	"github.com/gemo-rc/gemo/internal/pilot/core"
)

// FunctionName is the only function the decision service may call.
const FunctionName = "set_rc_controls"

var (
	errNoToolCall         = errors.New("response carries no function call")
	errUnexpectedFunction = errors.New("unexpected function called")
	errMissingArgs        = errors.New("function call without arguments")
)

// ControlsTool declares set_rc_controls{drive, steer, reason}; drive and steer are required.
func ControlsTool() *genai.Tool {
	return &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{{
			Name:        FunctionName,
			Description: "Return RC car control commands.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"drive":  {Type: genai.TypeString, Enum: core.DriveValues},
					"steer":  {Type: genai.TypeString, Enum: core.SteerValues},
					"reason": {Type: genai.TypeString},
				},
				Required: []string{"drive", "steer"},
			},
		}},
	}
}

// commandFromCall validates one function call and normalizes its arguments.
func commandFromCall(name string, args map[string]any) (core.Command, error) {
	if name != FunctionName {
		return core.FailSafe(), errUnexpectedFunction
	}
	if args == nil {
		return core.FailSafe(), errMissingArgs
	}
	return core.SanitizeArgs(args), nil
}
