package integrity

import (
	"bytes"
	_ "embed"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"debtman/internal/core"
)

//go:embed document.schema.json
var documentSchema []byte

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(documentSchema))
		if err != nil {
			compileErr = fmt.Errorf("parsing embedded schema: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		if err := c.AddResource("document.schema.json", doc); err != nil {
			compileErr = fmt.Errorf("registering embedded schema: %w", err)
			return
		}
		compiled, compileErr = c.Compile("document.schema.json")
	})
	return compiled, compileErr
}

// CheckRaw validates raw document bytes against the structural JSON Schema.
// This is the integrity-parsing gate run before unmarshalling: malformed JSON
// or a document missing its core shape reads as corruption, which triggers
// backup recovery upstream.
func CheckRaw(data []byte) error {
	sch, err := schema()
	if err != nil {
		return err
	}

	value, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return core.NewError(core.KindCorruptionDetected, "integrity.parse", err)
	}

	if err := sch.Validate(value); err != nil {
		return core.NewError(core.KindCorruptionDetected, "integrity.parse", err)
	}

	return nil
}
