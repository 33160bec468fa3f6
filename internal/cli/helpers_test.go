package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/fragwatch/internal/config"
)

const itemsDocument = `fragment: ItemFields: {
	on: "Item"
	fields: {
		id:   true
		text: true
		author: fields: name: true
	}
}

fragment: ItemText: {
	on: "Item"
	fields: text: true
}
`

// fixture is a temp directory holding a database path and a fragment
// document.
type fixture struct {
	dir string
	db  string
	doc string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	doc := filepath.Join(dir, "items.cue")
	require.NoError(t, os.WriteFile(doc, []byte(itemsDocument), 0644))
	return fixture{dir: dir, db: filepath.Join(dir, "test.db"), doc: doc}
}

func (f fixture) file(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(f.dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// execute runs the root command with args against the fixture database.
func (f fixture) execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand(config.Config{DB: f.db, Format: "text"})
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// seed writes records to the fixture database through the write command.
func (f fixture) seed(t *testing.T, records string) {
	t.Helper()
	path := f.file(t, "seed.yaml", records)
	_, _, err := f.execute(t, "", "write", path)
	require.NoError(t, err)
}
