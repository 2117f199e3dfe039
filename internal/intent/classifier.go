// Package intent classifies queries by nearest centroid in the knowledge
// base's TF-IDF space. The label is metadata and never selects the answer.
package intent

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/supportdesk/qa-assistant/internal/knowledge"
	"github.com/supportdesk/qa-assistant/internal/textnorm"
	"github.com/supportdesk/qa-assistant/internal/vectorizer"
)

// LowConfidence is returned when no centroid is close enough.
const LowConfidence = "low_confidence"

// DefaultFloor is the minimum centroid similarity for a confident label.
const DefaultFloor = 0.2

var (
	// ErrSpaceMismatch is returned when a model was trained against a
	// different vocabulary than the one it is loaded with.
	ErrSpaceMismatch = errors.New("intent model was trained against a different vector space")
	// ErrNoExamples is returned when no example embeds to a non-zero vector.
	ErrNoExamples = errors.New("no usable intent examples")
)

// Example is one labeled training text.
type Example struct {
	Text  string
	Label string
}

// ExamplesFromKnowledgeBase returns one example per entry that carries an intent.
func ExamplesFromKnowledgeBase(kb *knowledge.KnowledgeBase) []Example {
	var out []Example
	for i := 0; i < kb.Len(); i++ {
		if label := kb.Entry(i).IntentLabel(); label != "" {
			out = append(out, Example{Text: kb.NormalizedQuestion(i), Label: label})
		}
	}
	return out
}

// Centroid is a sparse, unit-length class center.
type Centroid struct {
	Label    string          `yaml:"label"`
	Examples int             `yaml:"examples"`
	Weights  map[int]float64 `yaml:"weights"`
}

// Model is the serializable result of Train.
type Model struct {
	Fingerprint string     `yaml:"fingerprint"`
	Dimension   int        `yaml:"dimension"`
	Floor       float64    `yaml:"floor"`
	Centroids   []Centroid `yaml:"centroids"`
}

// Labels returns the trained labels in model order.
func (m *Model) Labels() []string {
	labels := make([]string, len(m.Centroids))
	for i, c := range m.Centroids {
		labels[i] = c.Label
	}
	return labels
}

// Train averages the embeddings of each label's examples into a centroid.
// Example text goes through normalizeText before embedding, so pass the same
// normalizer queries use. A nil normalizeText means textnorm.Normalize. Examples
// that share no terms with the space are skipped.
func Train(space *vectorizer.VectorSpace, normalizeText func(string) string, examples []Example) (*Model, error) {
	if !space.Fitted() {
		return nil, vectorizer.ErrUnfittedSpace
	}
	if normalizeText == nil {
		normalizeText = textnorm.Normalize
	}

	sums := make(map[string][]float64)
	counts := make(map[string]int)
	for _, ex := range examples {
		if ex.Label == "" {
			continue
		}
		vec, err := space.Embed(normalizeText(ex.Text))
		if err != nil {
			return nil, fmt.Errorf("embed example %q: %w", ex.Text, err)
		}
		if isZero(vec) {
			continue
		}

		sum, ok := sums[ex.Label]
		if !ok {
			sum = make([]float64, space.Dimension())
			sums[ex.Label] = sum
		}
		for i, v := range vec {
			sum[i] += v
		}
		counts[ex.Label]++
	}

	if len(sums) == 0 {
		return nil, ErrNoExamples
	}

	model := &Model{
		Fingerprint: space.Fingerprint(),
		Dimension:   space.Dimension(),
		Floor:       DefaultFloor,
	}
	for _, label := range sortedKeys(sums) {
		unit := normalize(sums[label])
		weights := make(map[int]float64)
		for i, v := range unit {
			if v != 0 {
				weights[i] = v
			}
		}
		model.Centroids = append(model.Centroids, Centroid{
			Label:    label,
			Examples: counts[label],
			Weights:  weights,
		})
	}

	return model, nil
}

// Save writes the model as YAML.
func (m *Model) Save(path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal intent model: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write intent model: %w", err)
	}
	return nil
}

// LoadModel reads a model written by Save.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read intent model: %w", err)
	}

	var m Model
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse intent model: %w", err)
	}
	return &m, nil
}

// Classifier assigns intent labels to query embeddings. Safe for concurrent use.
type Classifier struct {
	labels    []string
	centroids [][]float64
	floor     float64
}

// NewClassifier binds a model to the space it will classify embeddings from.
func NewClassifier(model *Model, space *vectorizer.VectorSpace) (*Classifier, error) {
	if model.Fingerprint != space.Fingerprint() || model.Dimension != space.Dimension() {
		return nil, ErrSpaceMismatch
	}

	c := &Classifier{floor: model.Floor}
	if c.floor <= 0 {
		c.floor = DefaultFloor
	}
	for _, centroid := range model.Centroids {
		dense := make([]float64, model.Dimension)
		for i, v := range centroid.Weights {
			if i < 0 || i >= model.Dimension {
				return nil, fmt.Errorf("centroid %q: weight index %d out of range", centroid.Label, i)
			}
			dense[i] = v
		}
		c.labels = append(c.labels, centroid.Label)
		c.centroids = append(c.centroids, normalize(dense))
	}
	return c, nil
}

// Classify returns the nearest label and its cosine similarity. Scores below
// the floor, empty embeddings and dimension mismatches yield LowConfidence.
func (c *Classifier) Classify(embedding []float64) (string, float64) {
	if c == nil || len(c.centroids) == 0 || len(embedding) != len(c.centroids[0]) {
		return LowConfidence, 0
	}

	var norm float64
	for _, v := range embedding {
		norm += v * v
	}
	if norm == 0 {
		return LowConfidence, 0
	}
	norm = math.Sqrt(norm)

	best, bestScore := -1, 0.0
	for i, centroid := range c.centroids {
		var dot float64
		for j, v := range embedding {
			dot += v * centroid[j]
		}
		score := dot / norm
		if best < 0 || score > bestScore {
			best, bestScore = i, score
		}
	}

	if bestScore < c.floor {
		return LowConfidence, bestScore
	}
	return c.labels[best], bestScore
}

// Labels returns the labels the classifier can produce.
func (c *Classifier) Labels() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.labels...)
}

func normalize(vec []float64) []float64 {
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	out := make([]float64, len(vec))
	for i, v := range vec {
		out[i] = v / norm
	}
	return out
}

func isZero(vec []float64) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
