package battle

import "strings"

// RefusalDetector classifies a persona reply as an out-of-character refusal.
type RefusalDetector interface {
	IsRefusal(text string) bool
}

// RefusalDetectorFunc adapts a function to RefusalDetector.
type RefusalDetectorFunc func(text string) bool

func (f RefusalDetectorFunc) IsRefusal(text string) bool {
	return f(text)
}

// DefaultRefusalPhrases are the markers of a model stepping out of its role.
var DefaultRefusalPhrases = []string{
	"I'm not going to",
	"I cannot roleplay",
	"I won't roleplay",
	"I'm holding the line",
	"This is not acceptable to me",
	"What's the actual conversation",
	"I cannot write",
	"I won't write",
	"I'm not comfortable",
	"I cannot participate",
	"I refuse to",
	"breaks character",
	"out of character",
	"I can't help you fabricate",
	"I can't help you draft",
}

// PhraseDetector flags text containing any phrase, ignoring case.
type PhraseDetector struct {
	phrases []string
}

func NewPhraseDetector(phrases ...string) *PhraseDetector {
	d := &PhraseDetector{phrases: make([]string, 0, len(phrases))}
	for _, p := range phrases {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			d.phrases = append(d.phrases, p)
		}
	}
	return d
}

func (d *PhraseDetector) IsRefusal(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range d.phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// DefaultRefusalDetector matches DefaultRefusalPhrases.
var DefaultRefusalDetector RefusalDetector = NewPhraseDetector(DefaultRefusalPhrases...)
