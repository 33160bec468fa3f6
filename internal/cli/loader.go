package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/fragwatch/internal/cache"
	"github.com/roach88/fragwatch/internal/compiler"
	"github.com/roach88/fragwatch/internal/ir"
	"github.com/roach88/fragwatch/internal/store"
)

// RecordInput is a record as written in YAML or JSON input.
// References are written as {"__ref": "Type:id"}.
type RecordInput struct {
	ID       string         `yaml:"id,omitempty"`
	Typename string         `yaml:"typename"`
	Fields   map[string]any `yaml:"fields"`
}

// LoadDocument compiles a CUE fragment document.
func LoadDocument(path string) (*ir.Document, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("document not found: %s", path)
	}
	return compiler.CompileFile(path)
}

// LoadRecordsFile reads a YAML or JSON list of records.
func LoadRecordsFile(path string) ([]ir.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	return ParseRecords(data)
}

// ParseRecords decodes a YAML or JSON list of records. JSON input is
// accepted because it is valid YAML. Unknown record keys are rejected.
func ParseRecords(data []byte) ([]ir.Record, error) {
	var inputs []RecordInput
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&inputs); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("parse records: %w", err)
	}

	records := make([]ir.Record, len(inputs))
	for i, in := range inputs {
		if in.Typename == "" && in.ID == "" {
			return nil, fmt.Errorf("record %d: id or typename is required", i)
		}
		fields, err := ir.ObjectFromMap(in.Fields)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		records[i] = ir.Record{ID: in.ID, Typename: in.Typename, Fields: fields}
	}
	return records, nil
}

// ParseVariables decodes a JSON object of request variables. An empty
// string yields no variables.
func ParseVariables(s string) (ir.IRObject, error) {
	if s == "" {
		return nil, nil
	}
	vars, err := ir.UnmarshalIRObject([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("parse variables: %w", err)
	}
	return vars, nil
}

// openCache opens the database and a cache over it. The caller closes
// both, cache first.
func openCache(ctx context.Context, opts *RootOptions, dbPath string, logger *slog.Logger, extra ...cache.Option) (*store.Store, *cache.Cache, error) {
	if dbPath == "" {
		return nil, nil, fmt.Errorf("database path is required")
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return nil, nil, err
	}

	cacheOpts := append(opts.KeyFields.CacheOptions(), cache.WithLogger(logger))
	cacheOpts = append(cacheOpts, extra...)
	c, err := cache.New(ctx, st, cacheOpts...)
	if err != nil {
		_ = st.Close()
		return nil, nil, err
	}
	return st, c, nil
}
