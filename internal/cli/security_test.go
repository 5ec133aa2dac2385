package cli

import "testing"

func TestDefaultSecurityProfileAllowsCoreCommands(t *testing.T) {
	profile := defaultSecurityProfile()
	allowed := profile.AllowedCommands()
	for _, name := range []string{"git", "go", "grep", "ls"} {
		if _, ok := allowed[name]; !ok {
			t.Errorf("expected %q in default allowlist", name)
		}
	}
	if _, ok := allowed["rm"]; ok {
		t.Error("rm must not be in the default allowlist")
	}
}
