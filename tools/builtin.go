package tools

// Built-in tool identifiers the role capability table references by
// convention. The toolregistry binds catalog entries (supplied by the host)
// whose idents a role's capability row names; besides its default role
// table, it refers to Bash (security-hook wrapping) and PlanRead/PlanWrite
// (rooted at the spec directory) by these constants.
const (
	ReadFile       Ident = "fs.read_file"
	WriteFile      Ident = "fs.write_file"
	EditFile       Ident = "fs.edit_file"
	Grep           Ident = "fs.grep"
	Glob           Ident = "fs.glob"
	Bash           Ident = "bash.run"
	WebFetch       Ident = "web.fetch"
	WebSearch      Ident = "web.search"
	Browser        Ident = "browser.navigate"
	PlanRead       Ident = "plan.read"
	PlanWrite      Ident = "plan.write"
)
