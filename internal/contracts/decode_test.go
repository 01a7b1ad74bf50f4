package contracts

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xeipuuv/gojsonschema"
)

func TestSchemasCompile(t *testing.T) {
	for name, s := range map[string]string{
		SymptomExtractionSchemaName: SymptomExtractionSchema,
		AnalysisSchemaName:          AnalysisSchema,
	} {
		var v map[string]any
		require.NoError(t, json.Unmarshal([]byte(s), &v), name)
		_, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
		require.NoError(t, err, name)
	}
}

func TestDecodeSymptomExtraction(t *testing.T) {
	raw := []byte(`{"symptoms":[{"name":"Fever","explanation":"38.5C noted"},{"name":"Cough","explanation":"dry cough for a week"}]}`)

	symptoms, err := DecodeSymptomExtraction(raw)
	require.NoError(t, err)
	assert.Equal(t, []Symptom{
		{Name: "Fever", Explanation: "38.5C noted"},
		{Name: "Cough", Explanation: "dry cough for a week"},
	}, symptoms)
}

func TestDecodeSymptomExtraction_EmptyIsNotAnError(t *testing.T) {
	symptoms, err := DecodeSymptomExtraction([]byte(`{"symptoms":[]}`))
	require.NoError(t, err)
	assert.NotNil(t, symptoms)
	assert.Empty(t, symptoms)
}

func TestDecodeSymptomExtraction_CodeFence(t *testing.T) {
	raw := []byte("```json\n{\"symptoms\":[{\"name\":\"Chills\",\"explanation\":\"reported\"}]}\n```")
	symptoms, err := DecodeSymptomExtraction(raw)
	require.NoError(t, err)
	require.Len(t, symptoms, 1)
	assert.Equal(t, "Chills", symptoms[0].Name)
}

func TestDecodeSymptomExtraction_Failures(t *testing.T) {
	tests := map[string]string{
		"malformed":        `{"symptoms":[`,
		"missing field":    `{"items":[]}`,
		"wrong type":       `{"symptoms":"fever"}`,
		"item missing key": `{"symptoms":[{"name":"Fever"}]}`,
		"not an object":    `[1,2,3]`,
		"empty":            ``,
		"trailing data":    `{"symptoms":[]} {"symptoms":[]}`,
	}

	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			symptoms, err := DecodeSymptomExtraction([]byte(raw))
			assert.Nil(t, symptoms)
			var contractErr *ContractError
			require.ErrorAs(t, err, &contractErr)
			assert.Equal(t, SymptomExtractionSchemaName, contractErr.Schema)
		})
	}
}

const fullAnalysis = `{
  "potentialReasons": [{"name": "Influenza", "description": "Viral infection"}],
  "solutions": {
    "commonSense": [{"name": "Rest", "description": "Sleep well", "sources": [{"title": "NHS", "url": "https://www.nhs.uk/conditions/flu/"}]}],
    "ayurvedic": [],
    "homeopathic": [],
    "allopathic": [{"name": "Paracetamol", "description": "Reduces fever", "sources": []}],
    "naturopathic": []
  }
}`

func TestDecodeAnalysis(t *testing.T) {
	results, err := DecodeAnalysis([]byte(fullAnalysis))
	require.NoError(t, err)

	require.Len(t, results.PotentialReasons, 1)
	assert.Equal(t, "Influenza", results.PotentialReasons[0].Name)
	require.Len(t, results.Solutions.CommonSense, 1)
	assert.Equal(t, []Source{{Title: "NHS", URL: "https://www.nhs.uk/conditions/flu/"}}, results.Solutions.CommonSense[0].Sources)
	assert.Equal(t, "Paracetamol", results.Solutions.Get(CategoryAllopathic)[0].Name)
}

func TestDecodeAnalysis_MissingCategoryDefaultsToEmpty(t *testing.T) {
	raw := `{
	  "potentialReasons": [],
	  "solutions": {
	    "commonSense": [],
	    "homeopathic": [],
	    "allopathic": [],
	    "naturopathic": null
	  }
	}`

	results, err := DecodeAnalysis([]byte(raw))
	require.NoError(t, err)
	assert.NotNil(t, results.Solutions.Ayurvedic)
	assert.Empty(t, results.Solutions.Ayurvedic)
	assert.NotNil(t, results.Solutions.Naturopathic)

	// The defaulted key is present when the value is written back out.
	data, err := json.Marshal(results)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"ayurvedic":[]`)
}

func TestDecodeAnalysis_Failures(t *testing.T) {
	tests := map[string]string{
		"malformed":           `{"potentialReasons": [}`,
		"missing reasons":     `{"solutions": {}}`,
		"missing solutions":   `{"potentialReasons": []}`,
		"solution no sources": `{"potentialReasons": [], "solutions": {"commonSense": [{"name": "Rest", "description": "x"}]}}`,
		"reasons wrong type":  `{"potentialReasons": {}, "solutions": {}}`,
	}

	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			results, err := DecodeAnalysis([]byte(raw))
			assert.Nil(t, results)
			var contractErr *ContractError
			require.ErrorAs(t, err, &contractErr)
			assert.Equal(t, AnalysisSchemaName, contractErr.Schema)
		})
	}
}

func TestCategories(t *testing.T) {
	assert.Equal(t, []Category{
		CategoryCommonSense, CategoryAyurvedic, CategoryHomeopathic, CategoryAllopathic, CategoryNaturopathic,
	}, Categories())
	assert.Equal(t, "Common Sense", CategoryCommonSense.Title())
	assert.Equal(t, "Ayurvedic", CategoryAyurvedic.Title())

	c, ok := ParseCategory("homeopathic")
	assert.True(t, ok)
	assert.Equal(t, CategoryHomeopathic, c)
	_, ok = ParseCategory("astrology")
	assert.False(t, ok)

	var seen []Category
	Solutions{}.Each(func(c Category, _ []Solution) { seen = append(seen, c) })
	assert.Equal(t, Categories(), seen)
}
