package filesystem

import "testing"

func TestParseFileNameRoundTrip(t *testing.T) {
	cases := []string{"TUNES.BAS", "games/invaders.bin", "a/b/c.d"}
	for _, path := range cases {
		if got := ParseFileName(path).String(); got != path {
			t.Errorf("ParseFileName(%q).String() = %q, want %q", path, got, path)
		}
	}
}

func TestParseFileNameNoExtension(t *testing.T) {
	fn := ParseFileName("README")
	if fn.Base != "README" || fn.Ext != "" {
		t.Errorf("ParseFileName(%q) = %+v, want Base=README Ext=\"\"", "README", fn)
	}
}

func TestParseFileNameDirComponents(t *testing.T) {
	fn := ParseFileName("cmds/list.bas")
	if len(fn.Dir) != 1 || fn.Dir[0] != "cmds" {
		t.Errorf("Dir = %v, want [cmds]", fn.Dir)
	}
	if fn.Base != "list" || fn.Ext != "bas" {
		t.Errorf("Base/Ext = %q/%q, want list/bas", fn.Base, fn.Ext)
	}
}
