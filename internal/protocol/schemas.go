package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

const schemaBase = "https://brickwall.dev/schemas/"

// Schema names.
const (
	SchemaChatRequest = "chat_request.schema.json"
	SchemaHello       = "hello.schema.json"
	SchemaChat        = "chat.schema.json"
	SchemaReply       = "reply.schema.json"
	SchemaWelcome     = "welcome.schema.json"
)

var (
	schemaOnce sync.Once
	schemaErr  error
	schemas    map[string]*jsonschema.Schema
)

func loadSchemas() {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020

	names, err := fs.Glob(schemaFS, "schemas/*.schema.json")
	if err != nil {
		schemaErr = err
		return
	}
	for _, p := range names {
		raw, err := schemaFS.ReadFile(p)
		if err != nil {
			schemaErr = err
			return
		}
		if err := c.AddResource(schemaBase+path.Base(p), bytes.NewReader(raw)); err != nil {
			schemaErr = fmt.Errorf("schema %s: %w", p, err)
			return
		}
	}
	schemas = map[string]*jsonschema.Schema{}
	for _, p := range names {
		name := path.Base(p)
		s, err := c.Compile(schemaBase + name)
		if err != nil {
			schemaErr = fmt.Errorf("compile %s: %w", name, err)
			return
		}
		schemas[name] = s
	}
}

// Schema returns a compiled embedded schema by file name.
func Schema(name string) (*jsonschema.Schema, error) {
	schemaOnce.Do(loadSchemas)
	if schemaErr != nil {
		return nil, schemaErr
	}
	s, ok := schemas[name]
	if !ok {
		return nil, fmt.Errorf("unknown schema %q", name)
	}
	return s, nil
}

// Validate checks a raw JSON document against an embedded schema.
func Validate(name string, raw []byte) error {
	s, err := Schema(name)
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	return s.Validate(v)
}
