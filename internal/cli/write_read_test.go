package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const itemWithAuthor = `- typename: Item
  fields: {id: 1, text: hello, author: {__ref: "Author:ada"}}
`

func TestWriteThenRead(t *testing.T) {
	f := newFixture(t)
	records := f.file(t, "records.yaml", itemWithAuthor+`- id: "Author:ada"
  typename: Author
  fields: {name: Ada}
`)

	out, _, err := f.execute(t, "", "write", records)
	require.NoError(t, err)
	assert.Equal(t, "wrote 2 record(s) at seq 2\n", out)

	out, _, err = f.execute(t, "", "read", "--doc", f.doc, "--name", "ItemFields", "--from", "Item:1")
	require.NoError(t, err)
	assert.Equal(t, "#0 complete\n  data: {\"author\":{\"name\":\"Ada\"},\"id\":1,\"text\":\"hello\"}\n", out)
}

func TestWriteClockResumesFromStore(t *testing.T) {
	f := newFixture(t)
	f.seed(t, itemWithAuthor)

	records := f.file(t, "more.json", `[{"typename":"Item","fields":{"id":2,"text":"two"}}]`)
	out, _, err := f.execute(t, "", "--format", "json", "write", records)
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   WriteResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, WriteResult{Written: 1, Seq: 2}, resp.Data)
}

func TestWriteRejectsBadInput(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"unknown key", "- typename: Item\n  feilds: {id: 1}\n", "parse records"},
		{"no identity", "- fields: {text: hi}\n", "record 0: id or typename is required"},
		{"float field", "- typename: Item\n  fields: {id: 1, score: 0.5}\n", "record 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := f.file(t, "bad.yaml", tt.content)
			out, _, err := f.execute(t, "", "write", path)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Contains(t, out, "Error [E005]")
		})
	}
}

func TestReadFromObject(t *testing.T) {
	f := newFixture(t)
	f.seed(t, itemWithAuthor)

	out, _, err := f.execute(t, "", "read", "--doc", f.doc, "--name", "ItemText",
		"--from", `{"__typename":"Item","id":1}`)
	require.NoError(t, err)
	assert.Equal(t, "#0 complete\n  data: {\"text\":\"hello\"}\n", out)
}

func TestReadPartial(t *testing.T) {
	f := newFixture(t)
	f.seed(t, itemWithAuthor)
	missing := `  missing: {"author":"Dangling reference to missing Author:ada object"}` + "\n"

	t.Run("without partial data", func(t *testing.T) {
		out, _, err := f.execute(t, "", "read", "--doc", f.doc, "--name", "ItemFields", "--from", "Item:1")
		require.NoError(t, err)
		assert.Equal(t, "#0 partial\n  data: null\n"+missing, out)
	})

	t.Run("with partial data", func(t *testing.T) {
		out, _, err := f.execute(t, "", "read", "--doc", f.doc, "--name", "ItemFields", "--from", "Item:1", "--partial")
		require.NoError(t, err)
		assert.Equal(t, "#0 partial\n  data: {\"id\":1,\"text\":\"hello\"}\n"+missing, out)
	})
}

func TestReadErrors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name     string
		args     []string
		wantCode string
	}{
		{"missing document", []string{"--doc", f.dir + "/none.cue", "--from", "Item:1"}, "E003"},
		{"ambiguous fragment", []string{"--doc", f.doc, "--from", "Item:1"}, "E006"},
		{"bad variables", []string{"--doc", f.doc, "--name", "ItemText", "--from", "Item:1", "--vars", "[1]"}, "E005"},
		{"bad from", []string{"--doc", f.doc, "--name", "ItemText", "--from", "{nope"}, "E005"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := f.execute(t, "", append([]string{"read"}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, "Error ["+tt.wantCode+"]")
		})
	}
}

func TestReadRequiresFlags(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.execute(t, "", "read", "--doc", f.doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "from" not set`)
}

func TestParseRecordsEmpty(t *testing.T) {
	records, err := ParseRecords(nil)
	require.NoError(t, err)
	assert.Nil(t, records)
}
