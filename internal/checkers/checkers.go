// Package checkers provides quicktest checkers shared by taskman tests.
package checkers

import (
	"encoding/json"
	"fmt"

	qt "github.com/frankban/quicktest"
	"github.com/yalp/jsonpath"
)

type jsonPathEquals struct {
	path string
}

// JSONPathEquals checks that the JSON document got (a string or []byte)
// holds want at the given JSONPath expression, e.g.
//
//	c.Assert(text, checkers.JSONPathEquals("$[0].name"), "w1")
//
// Numbers decode as float64.
func JSONPathEquals(path string) qt.Checker {
	return &jsonPathEquals{path: path}
}

// ArgNames implements qt.Checker.
func (c *jsonPathEquals) ArgNames() []string {
	return []string{"got", "want"}
}

// Check implements qt.Checker.
func (c *jsonPathEquals) Check(got any, args []any, note func(key string, value any)) error {
	var data []byte
	switch v := got.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return qt.BadCheckf("expected string or []byte, got %T", got)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return qt.BadCheckf("invalid JSON: %v", err)
	}
	value, err := jsonpath.Read(doc, c.path)
	if err != nil {
		note("path", c.path)
		return fmt.Errorf("cannot read JSONPath: %w", err)
	}
	note("path", c.path)
	return qt.DeepEquals.Check(value, args, note)
}
