package translation

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const (
	glosbeEnvelopeSchema    = "glosbe_envelope.schema.json"
	glosbeTranslationSchema = "glosbe_translation.schema.json"
	glosbeExamplesSchema    = "glosbe_examples.schema.json"
)

//go:embed schemas/*.schema.json
var glosbeSchemaFS embed.FS

// glosbeResponse is one of glosbeTranslationResponse, glosbeExamplesResponse or
// glosbeErrorResponse.
type glosbeResponse interface {
	glosbeResponse()
}

type glosbeTranslationResponse struct {
	Tuc []struct {
		Phrase *struct {
			Text *string `json:"text"`
		} `json:"phrase"`
	} `json:"tuc"`
}

type glosbeExamplesResponse struct {
	Examples []struct {
		Second *string `json:"second"`
	} `json:"examples"`
}

type glosbeErrorResponse struct {
	Result  string `json:"result"`
	Message string `json:"message"`
}

func (glosbeTranslationResponse) glosbeResponse() {}
func (glosbeExamplesResponse) glosbeResponse() {}
func (glosbeErrorResponse) glosbeResponse() {}

var (
	glosbeCompileOnce sync.Once
	glosbeSchemas     map[string]*jsonschema.Schema
	glosbeSchemaErr   error
)

// parseGlosbeResponse validates body against the envelope and then the mode-specific schema.
// Anything that does not match is ErrMalformedPayload.
func parseGlosbeResponse(body []byte, examples bool) (glosbeResponse, error) {
	value, err := decodeStrictJSON(body)
	if err != nil {
		return nil, fmt.Errorf("%w: decode JSON: %v", ErrMalformedPayload, err)
	}

	schemas, err := loadGlosbeSchemas()
	if err != nil {
		return nil, fmt.Errorf("load glosbe schemas: %w", err)
	}

	if err := schemas[glosbeEnvelopeSchema].Validate(value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	var envelope glosbeErrorResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: unmarshal envelope: %v", ErrMalformedPayload, err)
	}
	if strings.TrimSpace(envelope.Result) != "ok" {
		return envelope, nil
	}

	if examples {
		if err := schemas[glosbeExamplesSchema].Validate(value); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		var resp glosbeExamplesResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("%w: unmarshal examples: %v", ErrMalformedPayload, err)
		}
		return resp, nil
	}

	if err := schemas[glosbeTranslationSchema].Validate(value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	var resp glosbeTranslationResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: unmarshal translations: %v", ErrMalformedPayload, err)
	}
	return resp, nil
}

func loadGlosbeSchemas() (map[string]*jsonschema.Schema, error) {
	glosbeCompileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020

		names := []string{glosbeEnvelopeSchema, glosbeTranslationSchema, glosbeExamplesSchema}
		for _, name := range names {
			raw, err := glosbeSchemaFS.ReadFile("schemas/" + name)
			if err != nil {
				glosbeSchemaErr = fmt.Errorf("read schema %s: %w", name, err)
				return
			}
			if err := compiler.AddResource(name, bytes.NewReader(raw)); err != nil {
				glosbeSchemaErr = fmt.Errorf("add schema resource %s: %w", name, err)
				return
			}
		}

		compiled := make(map[string]*jsonschema.Schema, len(names))
		for _, name := range names {
			schema, err := compiler.Compile(name)
			if err != nil {
				glosbeSchemaErr = fmt.Errorf("compile schema %s: %w", name, err)
				return
			}
			compiled[name] = schema
		}
		glosbeSchemas = compiled
	})

	if glosbeSchemaErr != nil {
		return nil, glosbeSchemaErr
	}
	if glosbeSchemas == nil {
		return nil, fmt.Errorf("glosbe schemas not initialized")
	}
	return glosbeSchemas, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}
