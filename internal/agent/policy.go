package agent

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Policy decides whether an answer should be conditioned on retrieved
// context. It sees the question and the best retrieved similarity score
// (cosine, larger = better).
type Policy interface {
	UseContext(question string, bestScore float32) bool
}

// PolicyConfig is the serialized form of the keyword/threshold policy.
type PolicyConfig struct {
	// Threshold is the minimum best-chunk cosine similarity at which
	// retrieved context is used even without an explicit document reference.
	Threshold float32 `yaml:"threshold"`

	// Patterns are regular expressions matching questions that explicitly
	// reference the user's documents.
	Patterns []string `yaml:"patterns"`
}

// defaultPolicyYAML is the built-in policy, overridable from a file.
const defaultPolicyYAML = `
threshold: 0.35
patterns:
  - (?i)\b(this|that|my|the)\s+(document|doc|file|pdf|report|paper|text)\b
  - (?i)\bsummar(y|ize|ise|ization)\b
  - (?i)\bupload(ed|s)?\b
  - (?i)\b(above|attached|provided)\b
  - (?i)\baccording to\b
  - (?i)\bin the (text|content|excerpt)\b
`

// KeywordThreshold is the hybrid gating policy: retrieved context is used
// when the question lexically references a document, or when the best
// retrieved chunk clears the similarity threshold.
type KeywordThreshold struct {
	patterns  []*regexp.Regexp
	threshold float32
}

// Compile-time interface check.
var _ Policy = (*KeywordThreshold)(nil)

// NewKeywordThreshold compiles a policy from its configuration.
func NewKeywordThreshold(cfg PolicyConfig) (*KeywordThreshold, error) {
	patterns := make([]*regexp.Regexp, 0, len(cfg.Patterns))
	for _, p := range cfg.Patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("agent: compile policy pattern %q: %w", p, err)
		}
		patterns = append(patterns, re)
	}
	return &KeywordThreshold{patterns: patterns, threshold: cfg.Threshold}, nil
}

// DefaultPolicyConfig returns the built-in policy configuration.
func DefaultPolicyConfig() PolicyConfig {
	var cfg PolicyConfig
	if err := yaml.Unmarshal([]byte(defaultPolicyYAML), &cfg); err != nil {
		panic("agent: built-in policy yaml: " + err.Error())
	}
	return cfg
}

// DefaultPolicy returns the built-in keyword/threshold policy.
func DefaultPolicy() *KeywordThreshold {
	p, err := NewKeywordThreshold(DefaultPolicyConfig())
	if err != nil {
		panic("agent: built-in policy patterns: " + err.Error())
	}
	return p
}

// LoadPolicyConfig overlays a policy file onto base; fields the file omits
// keep their base values.
func LoadPolicyConfig(path string, base PolicyConfig) (PolicyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PolicyConfig{}, fmt.Errorf("agent: read policy file: %w", err)
	}
	if err := yaml.Unmarshal(data, &base); err != nil {
		return PolicyConfig{}, fmt.Errorf("agent: parse policy file: %w", err)
	}
	return base, nil
}

// LoadPolicy reads a policy file, falling back to built-in defaults for
// omitted fields.
func LoadPolicy(path string) (*KeywordThreshold, error) {
	cfg, err := LoadPolicyConfig(path, DefaultPolicyConfig())
	if err != nil {
		return nil, err
	}
	return NewKeywordThreshold(cfg)
}

// HasDocKeywords reports whether the question explicitly references the
// user's documents.
func (k *KeywordThreshold) HasDocKeywords(question string) bool {
	for _, re := range k.patterns {
		if re.MatchString(question) {
			return true
		}
	}
	return false
}

// UseContext applies the hybrid rule.
func (k *KeywordThreshold) UseContext(question string, bestScore float32) bool {
	return k.HasDocKeywords(question) || bestScore >= k.threshold
}
