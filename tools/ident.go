// Package tools defines the identifiers, metadata, and JSON codecs shared by
// every built-in tool (file read/write, bash, grep, glob, web fetch, and the
// specpipeline/build-specific tools). The toolregistry package binds these
// specs to executor functions per agent role.
package tools

// Ident is the strong type for a fully qualified tool identifier
// (e.g. "fs.read_file", "bash.run"). Use this type when referencing tools in
// maps or APIs to avoid accidentally mixing free-form strings in.
type Ident string
