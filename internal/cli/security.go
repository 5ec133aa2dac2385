package cli

import "github.com/devagent/orchestrator/security"

// defaultSecurityProfile is the Base command allowlist every session gets
// regardless of detected project stack: read-only inspection commands plus
// the handful of build/test runners common enough across stacks to trust by
// default (go, pytest, npm, make). Anything beyond these, such as a project's
// own test or lint runner, belongs in a Stack list layered on top per
// project, not here.
func defaultSecurityProfile() security.Profile {
	return security.Profile{
		Base: []string{
			"ls", "pwd", "cat", "head", "tail", "wc", "find", "grep",
			"git", "go", "pytest", "npm", "make",
		},
	}
}
