package security_test

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/devagent/orchestrator/security"
)

// TestAllowedUnionMembershipProperty verifies the allowlist invariant
// from spec §8: for any Bash tool-call whose first extracted command name
// is not in the union of the four allowed-command sets, the call is
// denied; conversely, if it is in the union (and has no registered
// validator to further narrow it), it is not denied purely on allowlist
// grounds.
func TestAllowedUnionMembershipProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	commandNames := gen.OneConstOf("ls", "cat", "echo", "xyz123", "notallowed", "grep", "sed")

	properties.Property("commands outside the allowed union are always denied", prop.ForAll(
		func(head string) bool {
			profile := security.Profile{Base: []string{"ls", "cat", "echo"}}
			call := security.ToolCall{ToolName: "Bash", ToolInput: map[string]any{"command": head + " arg1 arg2"}}
			decision := security.Validate(call, profile)

			_, inUnion := profile.AllowedCommands()[head]
			if !inUnion {
				return !decision.Allow
			}
			return decision.Allow
		},
		commandNames,
	))

	properties.Property("denial reason always names the offending command", prop.ForAll(
		func(head string) bool {
			profile := security.Profile{Base: []string{"ls", "cat", "echo"}}
			call := security.ToolCall{ToolName: "Bash", ToolInput: map[string]any{"command": head}}
			decision := security.Validate(call, profile)
			if decision.Allow {
				return true
			}
			return contains(decision.Reason, fmt.Sprintf("%q", head))
		},
		commandNames,
	))

	properties.TestingRun(t)
}

func contains(haystack, needle string) bool {
	return len(needle) == 0 || (len(haystack) >= len(needle) && indexOf(haystack, needle) >= 0)
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}
