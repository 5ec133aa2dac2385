// Package security implements the pre-execution Security Hook: validation
// of Bash tool calls against a per-session allowlist before they reach a
// subprocess. Every other tool passes through unchecked.
package security

// Profile is the per-session allowlist. The set of allowed commands is the
// union of Base, Stack, Script, and Custom; ScriptNames additionally
// constrains which basenames a shell-script invocation (a command beginning
// with "./" or "/") may resolve to.
type Profile struct {
	Base        []string
	Stack       []string
	Script      []string
	Custom      []string
	ScriptNames []string
}

// AllowedCommands returns the union of Base, Stack, Script, and Custom as a
// membership set.
func (p Profile) AllowedCommands() map[string]struct{} {
	set := make(map[string]struct{}, len(p.Base)+len(p.Stack)+len(p.Script)+len(p.Custom))
	for _, group := range [][]string{p.Base, p.Stack, p.Script, p.Custom} {
		for _, name := range group {
			set[name] = struct{}{}
		}
	}
	return set
}

// ScriptNameSet returns ScriptNames as a membership set.
func (p Profile) ScriptNameSet() map[string]struct{} {
	set := make(map[string]struct{}, len(p.ScriptNames))
	for _, name := range p.ScriptNames {
		set[name] = struct{}{}
	}
	return set
}

// listSnapshot is the wire representation of a Profile crossing the worker
// boundary: the four command sets and the script-name list as plain slices.
type listSnapshot struct {
	Base        []string `json:"base"`
	Stack       []string `json:"stack"`
	Script      []string `json:"script"`
	Custom      []string `json:"custom"`
	ScriptNames []string `json:"scriptNames"`
}

// MarshalLists serializes the profile's four command sets and script-name
// list into a form safe to copy across the worker boundary.
func (p Profile) MarshalLists() ([]string, []string, []string, []string, []string) {
	return cloneSlice(p.Base), cloneSlice(p.Stack), cloneSlice(p.Script), cloneSlice(p.Custom), cloneSlice(p.ScriptNames)
}

// UnmarshalLists reconstructs a Profile from the slices produced by
// MarshalLists on the other side of the worker boundary.
func UnmarshalLists(base, stack, script, custom, scriptNames []string) Profile {
	return Profile{
		Base:        cloneSlice(base),
		Stack:       cloneSlice(stack),
		Script:      cloneSlice(script),
		Custom:      cloneSlice(custom),
		ScriptNames: cloneSlice(scriptNames),
	}
}

func cloneSlice(src []string) []string {
	if len(src) == 0 {
		return nil
	}
	dst := make([]string, len(src))
	copy(dst, src)
	return dst
}
