package categorize

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Sample is a labeled line of text used to build the category model
type Sample struct {
	Text  string   `yaml:"text"`
	Label Category `yaml:"label"`
}

// DefaultSamples returns the built-in training corpus. There is deliberately
// no sample for Other.
func DefaultSamples() []Sample {
	return []Sample{
		{Text: "uber ride to airport", Label: Travel},
		{Text: "hotel accommodation", Label: Travel},
		{Text: "burger and fries", Label: Food},
		{Text: "monthly saas subscription", Label: Software},
		{Text: "laptop stand", Label: Office},
		{Text: "notebook and pens", Label: Office},
		{Text: "snacks and coffee", Label: Food},
		{Text: "cloud compute credits", Label: Software},
	}
}

// sampleFile is the on-disk layout of a corpus file
type sampleFile struct {
	Samples []Sample `yaml:"samples"`
}

// LoadSamples reads a YAML corpus file of the form
//
//	samples:
//	  - text: uber ride to airport
//	    label: travel
//
// Labels are validated against the closed category set.
func LoadSamples(path string) ([]Sample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading samples file: %w", err)
	}

	var f sampleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("parsing samples file %s: %v", path, err)}
	}

	for i, s := range f.Samples {
		label := Category(strings.ToLower(strings.TrimSpace(string(s.Label))))
		if !label.Valid() {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("sample %d has unknown label %q", i, s.Label)}
		}
		f.Samples[i].Label = label
	}

	return f.Samples, nil
}

// BuildFromFile builds a Model from the corpus file at path, or from the
// default samples when path is empty
func BuildFromFile(path string, opts ...Option) (*Model, error) {
	samples := DefaultSamples()
	if path != "" {
		var err error
		samples, err = LoadSamples(path)
		if err != nil {
			return nil, err
		}
	}
	return Build(samples, opts...)
}
