package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"

	"github.com/rolfmichelsen/dragontools/tape"
)

func testscriptMain() int {
	Execute()
	return 0
}

func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"dragondump": testscriptMain,
	}))
}

// buildFixtureTape writes a tiny two-block cassette image (one header
// block, one EOF block) into the testscript work directory so
// testdata/*.txtar scripts have a real .cas file to dump.
func buildFixtureTape(workdir string) error {
	w := tape.NewWriter()
	if err := w.WriteBlock(tape.NewHeaderBlock(tape.Header{
		Filename: "TUNES",
		FileType: tape.FileTypeBasic,
		IsASCII:  true,
	})); err != nil {
		return err
	}
	if err := w.WriteBlock(tape.NewEOFBlock()); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(workdir, "tunes.cas"), w.Bytes(), 0644)
}

func TestScripts(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: "testdata",
		Setup: func(env *testscript.Env) error {
			return buildFixtureTape(env.WorkDir)
		},
	})
}
