// Package contracts defines the closed response shapes exchanged with the
// text-generation service and the decoders that enforce them.
//
// Nothing leaves this package unless it validated against its schema, so the
// rest of the module can treat Symptom and AnalysisResults values as trusted.
package contracts

// Symptom is a symptom suggested by the extraction call.
type Symptom struct {
	Name        string `json:"name"`
	Explanation string `json:"explanation"`
}

// Reason is a potential underlying cause for the confirmed symptoms.
type Reason struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Source is a web reference backing a solution.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Solution is a remedy within one category.
type Solution struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Sources     []Source `json:"sources"`
}

// Category names one of the five fixed solution groupings.
type Category string

const (
	CategoryCommonSense  Category = "commonSense"
	CategoryAyurvedic    Category = "ayurvedic"
	CategoryHomeopathic  Category = "homeopathic"
	CategoryAllopathic   Category = "allopathic"
	CategoryNaturopathic Category = "naturopathic"
)

var categories = []Category{
	CategoryCommonSense,
	CategoryAyurvedic,
	CategoryHomeopathic,
	CategoryAllopathic,
	CategoryNaturopathic,
}

// Categories returns the solution categories in display order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// ParseCategory maps a user-supplied name onto a Category.
func ParseCategory(name string) (Category, bool) {
	for _, c := range categories {
		if string(c) == name {
			return c, true
		}
	}
	return "", false
}

// Title renders a category as words ("commonSense" -> "Common Sense").
func (c Category) Title() string {
	out := make([]rune, 0, len(c)+4)
	for i, r := range string(c) {
		switch {
		case i == 0 && r >= 'a' && r <= 'z':
			r -= 'a' - 'A'
		case r >= 'A' && r <= 'Z':
			out = append(out, ' ')
		}
		out = append(out, r)
	}
	return string(out)
}

// Solutions groups solutions under every category. All five keys are always
// present on the wire, each possibly empty.
type Solutions struct {
	CommonSense  []Solution `json:"commonSense"`
	Ayurvedic    []Solution `json:"ayurvedic"`
	Homeopathic  []Solution `json:"homeopathic"`
	Allopathic   []Solution `json:"allopathic"`
	Naturopathic []Solution `json:"naturopathic"`
}

// Get returns the solutions of one category.
func (s Solutions) Get(c Category) []Solution {
	switch c {
	case CategoryCommonSense:
		return s.CommonSense
	case CategoryAyurvedic:
		return s.Ayurvedic
	case CategoryHomeopathic:
		return s.Homeopathic
	case CategoryAllopathic:
		return s.Allopathic
	case CategoryNaturopathic:
		return s.Naturopathic
	}
	return nil
}

// Each calls fn for every category in display order.
func (s Solutions) Each(fn func(Category, []Solution)) {
	for _, c := range categories {
		fn(c, s.Get(c))
	}
}

// AnalysisResults is the parsed analysis report. Once attached to a session
// it is never mutated.
type AnalysisResults struct {
	PotentialReasons []Reason  `json:"potentialReasons"`
	Solutions        Solutions `json:"solutions"`
}

// SymptomExtractionResponse is the wire shape of the extraction call.
type SymptomExtractionResponse struct {
	Symptoms []Symptom `json:"symptoms"`
}
