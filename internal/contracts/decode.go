package contracts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// ContractError reports a payload that does not satisfy a response schema.
type ContractError struct {
	Schema     string
	Violations []string
	Err        error // parse failure, if any
}

func (e *ContractError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("contract %s: %v", e.Schema, e.Err)
	}
	return fmt.Sprintf("contract %s violated: %s", e.Schema, strings.Join(e.Violations, "; "))
}

func (e *ContractError) Unwrap() error {
	return e.Err
}

var (
	extractionSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
		return gojsonschema.NewSchema(gojsonschema.NewStringLoader(SymptomExtractionSchema))
	})
	analysisSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
		return gojsonschema.NewSchema(gojsonschema.NewStringLoader(AnalysisSchema))
	})
)

// DecodeSymptomExtraction validates raw against SymptomExtractionSchema and
// returns the symptoms. An empty list is a valid answer and comes back as a
// non-nil empty slice.
func DecodeSymptomExtraction(raw []byte) ([]Symptom, error) {
	doc, err := parseDocument(SymptomExtractionSchemaName, raw)
	if err != nil {
		return nil, err
	}
	if err := validate(extractionSchema, SymptomExtractionSchemaName, doc); err != nil {
		return nil, err
	}

	var resp SymptomExtractionResponse
	if err := remarshal(doc, &resp); err != nil {
		return nil, &ContractError{Schema: SymptomExtractionSchemaName, Err: err}
	}
	if resp.Symptoms == nil {
		resp.Symptoms = []Symptom{}
	}
	return resp.Symptoms, nil
}

// DecodeAnalysis validates raw against AnalysisSchema and returns the parsed
// report. Solution categories the upstream left out (or sent as null) are
// filled with empty lists before validation; every other missing field fails.
func DecodeAnalysis(raw []byte) (*AnalysisResults, error) {
	doc, err := parseDocument(AnalysisSchemaName, raw)
	if err != nil {
		return nil, err
	}
	defaultCategories(doc)
	if err := validate(analysisSchema, AnalysisSchemaName, doc); err != nil {
		return nil, err
	}

	var results AnalysisResults
	if err := remarshal(doc, &results); err != nil {
		return nil, &ContractError{Schema: AnalysisSchemaName, Err: err}
	}
	if results.PotentialReasons == nil {
		results.PotentialReasons = []Reason{}
	}
	return &results, nil
}

// parseDocument accepts a JSON object, optionally wrapped in a Markdown code
// fence the way some chat models emit it.
func parseDocument(schema string, raw []byte) (map[string]any, error) {
	body := stripCodeFence(raw)
	if len(body) == 0 {
		return nil, &ContractError{Schema: schema, Err: fmt.Errorf("empty payload")}
	}

	var doc any
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&doc); err != nil {
		return nil, &ContractError{Schema: schema, Err: fmt.Errorf("malformed json: %w", err)}
	}
	if dec.More() {
		return nil, &ContractError{Schema: schema, Err: fmt.Errorf("malformed json: trailing data after object")}
	}

	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, &ContractError{Schema: schema, Err: fmt.Errorf("top-level value is not an object")}
	}
	return obj, nil
}

func stripCodeFence(raw []byte) []byte {
	body := bytes.TrimSpace(raw)
	if !bytes.HasPrefix(body, []byte("```")) {
		return body
	}
	// Drop the opening fence line (```json) and the closing fence.
	if nl := bytes.IndexByte(body, '\n'); nl != -1 {
		body = body[nl+1:]
	} else {
		return nil
	}
	body = bytes.TrimSpace(body)
	body = bytes.TrimSuffix(body, []byte("```"))
	return bytes.TrimSpace(body)
}

func defaultCategories(doc map[string]any) {
	sol, ok := doc["solutions"].(map[string]any)
	if !ok {
		return
	}
	for _, c := range categories {
		if v, present := sol[string(c)]; !present || v == nil {
			sol[string(c)] = []any{}
		}
	}
}

func validate(load func() (*gojsonschema.Schema, error), name string, doc map[string]any) error {
	schema, err := load()
	if err != nil {
		return fmt.Errorf("compile schema %s: %w", name, err)
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return &ContractError{Schema: name, Err: err}
	}
	if !result.Valid() {
		violations := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			violations = append(violations, e.String())
		}
		return &ContractError{Schema: name, Violations: violations}
	}
	return nil
}

func remarshal(doc map[string]any, out any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
