package classify

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// Vocabulary lists the symptom phrases that raise a patient to a tier.
type Vocabulary struct {
	Resuscitation []string `yaml:"resuscitation"`
	Emergent      []string `yaml:"emergent"`
	Urgent        []string `yaml:"urgent"`
}

// DefaultVocabulary returns the built-in phrase lists.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Resuscitation: []string{
			"unconscious",
			"unresponsive",
			"severe bleeding",
			"not breathing",
			"cardiac arrest",
		},
		Emergent: []string{
			"chest pain",
			"chest tightness",
			"difficulty breathing",
			"shortness of breath",
			"stroke",
			"seizure",
		},
		Urgent: []string{
			"moderate pain",
			"severe pain",
			"persistent vomiting",
			"vomiting",
			"fever",
			"bleeding",
			"dehydration",
		},
	}
}

// LoadVocabulary reads a YAML vocabulary file. Tiers absent from the file
// keep their default phrases.
func LoadVocabulary(path string) (Vocabulary, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Vocabulary{}, fmt.Errorf("read vocabulary: %w", err)
	}

	var file Vocabulary
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return Vocabulary{}, fmt.Errorf("parse vocabulary %s: %w", path, err)
	}

	v := DefaultVocabulary()
	if file.Resuscitation != nil {
		v.Resuscitation = file.Resuscitation
	}
	if file.Emergent != nil {
		v.Emergent = file.Emergent
	}
	if file.Urgent != nil {
		v.Urgent = file.Urgent
	}
	if err := v.Validate(); err != nil {
		return Vocabulary{}, fmt.Errorf("vocabulary %s: %w", path, err)
	}
	return v, nil
}

// Validate rejects phrases that normalise to nothing and phrases listed in
// more than one tier.
func (v Vocabulary) Validate() error {
	var errs []error
	seen := make(map[string]Priority)
	for _, tier := range v.tiers() {
		for _, p := range tier.phrases {
			n := normalize(p)
			if n == "" {
				errs = append(errs, fmt.Errorf("%s: empty phrase %q", tier.priority.Label(), p))
				continue
			}
			if prev, ok := seen[n]; ok && prev != tier.priority {
				errs = append(errs, fmt.Errorf("phrase %q listed in both %s and %s", n, prev.Label(), tier.priority.Label()))
			}
			seen[n] = tier.priority
		}
	}
	return errors.Join(errs...)
}

type tier struct {
	priority Priority
	phrases  []string
}

func (v Vocabulary) tiers() []tier {
	return []tier{
		{P1, v.Resuscitation},
		{P2, v.Emergent},
		{P3, v.Urgent},
	}
}

// phrase is a normalised vocabulary entry.
type phrase struct {
	text     string
	priority Priority
}

func (v Vocabulary) compile() []phrase {
	var out []phrase
	dup := make(map[string]bool)
	for _, t := range v.tiers() {
		for _, p := range t.phrases {
			n := normalize(p)
			if n == "" || dup[n] {
				continue
			}
			dup[n] = true
			out = append(out, phrase{text: n, priority: t.priority})
		}
	}
	return out
}

// normalize lower-cases s and collapses every run of non letter/digit
// runes into one space.
func normalize(s string) string {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(words, " ")
}

// match returns the phrases present in text on word boundaries, in
// vocabulary order, dropping any phrase contained in a longer match.
func match(vocab []phrase, text string) []phrase {
	norm := normalize(text)
	if norm == "" {
		return nil
	}
	padded := " " + norm + " "

	var hits []phrase
	for _, p := range vocab {
		if strings.Contains(padded, " "+p.text+" ") {
			hits = append(hits, p)
		}
	}

	out := hits[:0:0]
	for i, p := range hits {
		covered := false
		for j, q := range hits {
			if i != j && len(q.text) > len(p.text) && strings.Contains(" "+q.text+" ", " "+p.text+" ") {
				covered = true
				break
			}
		}
		if !covered {
			out = append(out, p)
		}
	}
	return out
}
