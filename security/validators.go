package security

import "strings"

// Validator renders a Decision for a single recognized head command given
// its remaining argument tokens. Validators only narrow an already-allowed
// command further; a command absent from the allowed-command union never
// reaches a validator.
type Validator func(args []string) Decision

// validators is the dispatch table the spec describes as open-ended: new
// entries can be registered without touching Validate's control flow.
var validators = map[string]Validator{
	"pkill":   validateProcessSignal,
	"killall": validateProcessSignal,
	"kill":    validateKill,
	"rm":      validateRm,
	"git":     validateGit,
}

// developerProcesses is the closed allowlist of process names pkill/killall
// may target.
var developerProcesses = map[string]struct{}{
	"node": {}, "npm": {}, "npx": {}, "yarn": {}, "pnpm": {},
	"python": {}, "python3": {}, "pip": {},
	"cargo": {}, "rustc": {},
	"go": {}, "gopls": {},
	"postgres": {}, "postgresql": {}, "psql": {},
	"redis": {}, "redis-server": {},
	"java": {}, "ruby": {}, "bun": {}, "deno": {},
}

func validateProcessSignal(args []string) Decision {
	for _, arg := range args {
		if strings.HasPrefix(arg, "-") {
			continue
		}
		if _, ok := developerProcesses[arg]; !ok {
			return deny("Process %q is not in the allowed pkill/killall targets", arg)
		}
	}
	return allow()
}

// broadcastSignals are kill arguments that target every process in the
// caller's process group rather than a single pid.
var broadcastSignals = map[string]struct{}{"-1": {}, "0": {}, "-0": {}}

func validateKill(args []string) Decision {
	for _, arg := range args {
		if _, ok := broadcastSignals[arg]; ok {
			return deny("kill with signal/target %q (broadcast) is not allowed", arg)
		}
	}
	return allow()
}

// sensitiveRemovalTargets are paths rm must never be allowed to touch,
// with or without a trailing slash.
var sensitiveRemovalTargets = map[string]struct{}{
	"/": {}, "~": {}, "$HOME": {},
	"/etc": {}, "/usr": {}, "/var": {}, "/home": {}, "/root": {},
}

func validateRm(args []string) Decision {
	recursive, force := false, false
	var targets []string
	for _, arg := range args {
		switch {
		case arg == "-r" || arg == "-R" || arg == "--recursive":
			recursive = true
		case arg == "-f" || arg == "--force":
			force = true
		case strings.HasPrefix(arg, "-") && strings.Contains(arg, "r") && strings.Contains(arg, "f"):
			recursive, force = true, true
		case strings.HasPrefix(arg, "-"):
			// other flags ignored
		default:
			targets = append(targets, arg)
		}
	}
	if !recursive || !force {
		return allow()
	}
	for _, target := range targets {
		trimmed := strings.TrimSuffix(target, "/")
		_, exact := sensitiveRemovalTargets[target]
		_, bare := sensitiveRemovalTargets[trimmed]
		if exact || bare {
			return deny("rm -rf targeting %q is not allowed", target)
		}
		if strings.HasPrefix(trimmed, "..") {
			return deny("rm -rf targeting parent directory %q is not allowed", target)
		}
	}
	if len(targets) == 0 {
		return deny("rm -rf with no target is not allowed")
	}
	return allow()
}

func validateGit(args []string) Decision {
	if len(args) == 0 {
		return allow()
	}
	switch args[0] {
	case "push":
		return validateGitPush(args[1:])
	case "reset":
		return validateGitReset(args[1:])
	default:
		return allow()
	}
}

var protectedBranches = map[string]struct{}{"main": {}, "master": {}}

func validateGitPush(args []string) Decision {
	force, deleting := false, false
	var refs []string
	for _, arg := range args {
		switch {
		case arg == "--force" || arg == "-f" || arg == "--force-with-lease":
			force = true
		case arg == "--delete" || arg == "-d":
			deleting = true
		case strings.HasPrefix(arg, "-"):
			// other flags ignored
		default:
			refs = append(refs, arg)
		}
	}
	if !force && !deleting {
		return allow()
	}
	for _, ref := range refs {
		branch := ref
		if idx := strings.LastIndexByte(ref, ':'); idx >= 0 {
			branch = ref[idx+1:]
		}
		if _, ok := protectedBranches[branch]; ok {
			if force {
				return deny("git push --force to protected branch %q is not allowed", branch)
			}
			return deny("git push --delete of protected branch %q is not allowed", branch)
		}
	}
	return allow()
}

func validateGitReset(args []string) Decision {
	hard := false
	var refs []string
	for _, arg := range args {
		if arg == "--hard" {
			hard = true
			continue
		}
		if !strings.HasPrefix(arg, "-") {
			refs = append(refs, arg)
		}
	}
	if !hard {
		return allow()
	}
	for _, ref := range refs {
		if _, ok := protectedBranches[ref]; ok {
			return deny("git reset --hard on protected branch %q is not allowed", ref)
		}
	}
	return allow()
}
