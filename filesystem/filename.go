package filesystem

import "strings"

// FileName is a filesystem path split into its directory components,
// base name, and extension, the common shape ParseFileName reduces
// any backend's path syntax to regardless of whether that backend
// supports subdirectories.
type FileName struct {
	Dir  []string
	Base string
	Ext  string
}

// ParseFileName splits a slash-separated path into its directory
// components and a base/extension pair split on the last dot in the
// final component.
func ParseFileName(path string) FileName {
	parts := strings.Split(path, "/")
	last := parts[len(parts)-1]
	dir := parts[:len(parts)-1]

	base := last
	ext := ""
	if i := strings.LastIndex(last, "."); i > 0 {
		base = last[:i]
		ext = last[i+1:]
	}
	return FileName{Dir: append([]string(nil), dir...), Base: base, Ext: ext}
}

// String reassembles a FileName into its path form.
func (f FileName) String() string {
	name := f.Base
	if f.Ext != "" {
		name += "." + f.Ext
	}
	if len(f.Dir) == 0 {
		return name
	}
	return strings.Join(f.Dir, "/") + "/" + name
}
