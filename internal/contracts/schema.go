package contracts

// SchemaVersion is bumped whenever either response shape changes.
const SchemaVersion = "v1"

const (
	SymptomExtractionSchemaName = "symptom_extraction_" + SchemaVersion
	AnalysisSchemaName          = "analysis_" + SchemaVersion
)

// SymptomExtractionSchema is the JSON schema of SymptomExtractionResponse.
const SymptomExtractionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "SymptomExtractionResponse ` + SchemaVersion + `",
  "type": "object",
  "properties": {
    "symptoms": {
      "type": "array",
      "description": "A list of potential symptoms found in the text.",
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string", "description": "The name of the symptom."},
          "explanation": {"type": "string", "description": "A brief explanation of why this symptom was identified from the text provided."}
        },
        "required": ["name", "explanation"]
      }
    }
  },
  "required": ["symptoms"]
}`

const solutionSchema = `{
  "type": "object",
  "properties": {
    "name": {"type": "string", "description": "The name of the solution or remedy."},
    "description": {"type": "string", "description": "A detailed description of the solution."},
    "sources": {
      "type": "array",
      "description": "A list of web sources for this information.",
      "items": {
        "type": "object",
        "properties": {
          "title": {"type": "string", "description": "The title of the source webpage."},
          "url": {"type": "string", "description": "The full URL to the source."}
        },
        "required": ["title", "url"]
      }
    }
  },
  "required": ["name", "description", "sources"]
}`

const solutionList = `{"type": "array", "items": ` + solutionSchema + `}`

// AnalysisSchema is the JSON schema of AnalysisResults.
const AnalysisSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "AnalysisResponse ` + SchemaVersion + `",
  "type": "object",
  "properties": {
    "potentialReasons": {
      "type": "array",
      "description": "A list of potential underlying reasons or conditions for the given symptoms.",
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string", "description": "The name of the potential reason/condition."},
          "description": {"type": "string", "description": "A detailed explanation of the reason and its connection to the symptoms."}
        },
        "required": ["name", "description"]
      }
    },
    "solutions": {
      "type": "object",
      "description": "A categorized list of potential management solutions or remedies.",
      "properties": {
        "commonSense": ` + solutionList + `,
        "ayurvedic": ` + solutionList + `,
        "homeopathic": ` + solutionList + `,
        "allopathic": ` + solutionList + `,
        "naturopathic": ` + solutionList + `
      },
      "required": ["commonSense", "ayurvedic", "homeopathic", "allopathic", "naturopathic"]
    }
  },
  "required": ["potentialReasons", "solutions"]
}`
