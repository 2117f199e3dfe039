package intent

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supportdesk/qa-assistant/internal/knowledge"
	"github.com/supportdesk/qa-assistant/internal/textnorm"
	"github.com/supportdesk/qa-assistant/internal/vectorizer"
)

func hospitalKB(t *testing.T) *knowledge.KnowledgeBase {
	t.Helper()
	kb, err := knowledge.Load([]knowledge.Row{
		{Question: "How do I book an appointment with a doctor?", Answer: "Call reception or use the portal.", Intent: "appointment"},
		{Question: "What are the visiting hours?", Answer: "9am to 8pm daily.", Intent: "hospital_info"},
		{Question: "Where is the hospital parking?", Answer: "Behind the main block.", Intent: "hospital_info"},
		{Question: "How much does a consultation cost?", Answer: "KES 2,000.", Intent: "pricing"},
		{Question: "Do you accept NHIF insurance?", Answer: "Yes.", Intent: "insurance"},
		{Question: "Can I get my lab results online?", Answer: "Yes, via the portal."},
	}, knowledge.Options{Normalizer: textnorm.New(true)})
	require.NoError(t, err)
	return kb
}

func trainedClassifier(t *testing.T, kb *knowledge.KnowledgeBase) *Classifier {
	t.Helper()
	examples := append(ExamplesFromKnowledgeBase(kb), HospitalLexicon()...)
	model, err := Train(kb.Space(), kb.Normalize, examples)
	require.NoError(t, err)

	c, err := NewClassifier(model, kb.Space())
	require.NoError(t, err)
	return c
}

func embed(t *testing.T, kb *knowledge.KnowledgeBase, text string) []float64 {
	t.Helper()
	vec, err := kb.Embed(kb.Normalize(text))
	require.NoError(t, err)
	return vec
}

func TestExamplesFromKnowledgeBase(t *testing.T) {
	kb := hospitalKB(t)
	examples := ExamplesFromKnowledgeBase(kb)

	require.Len(t, examples, 5)
	assert.Equal(t, Example{Text: "book appointment doctor", Label: "appointment"}, examples[0])
}

func TestClassify(t *testing.T) {
	kb := hospitalKB(t)
	c := trainedClassifier(t, kb)

	tests := []struct {
		query string
		want  string
	}{
		{"When are visiting hours?", "hospital_info"},
		{"I want to book an appointment", "appointment"},
		{"consultation cost", "pricing"},
		{"is nhif insurance accepted", "insurance"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			label, confidence := c.Classify(embed(t, kb, tt.query))
			assert.Equal(t, tt.want, label)
			assert.GreaterOrEqual(t, confidence, DefaultFloor)
			assert.LessOrEqual(t, confidence, 1.0+1e-9)
		})
	}
}

func TestClassify_LowConfidence(t *testing.T) {
	kb := hospitalKB(t)
	c := trainedClassifier(t, kb)

	label, confidence := c.Classify(embed(t, kb, "banana smoothie"))
	assert.Equal(t, LowConfidence, label)
	assert.Zero(t, confidence)

	label, confidence = c.Classify(nil)
	assert.Equal(t, LowConfidence, label)
	assert.Zero(t, confidence)

	label, _ = c.Classify([]float64{1, 0})
	assert.Equal(t, LowConfidence, label, "dimension mismatch")

	var nilClassifier *Classifier
	label, _ = nilClassifier.Classify([]float64{1})
	assert.Equal(t, LowConfidence, label)
}

func TestClassify_FloorApplies(t *testing.T) {
	kb := hospitalKB(t)
	model, err := Train(kb.Space(), kb.Normalize, ExamplesFromKnowledgeBase(kb))
	require.NoError(t, err)
	model.Floor = 0.99

	c, err := NewClassifier(model, kb.Space())
	require.NoError(t, err)

	label, confidence := c.Classify(embed(t, kb, "visiting"))
	assert.Equal(t, LowConfidence, label)
	assert.Greater(t, confidence, 0.0)
}

func TestTrain_NormalizesLikeQueries(t *testing.T) {
	kb, err := knowledge.Load([]knowledge.Row{
		{Question: "What is the price of delivery?", Answer: "KES 200.", Intent: "pricing"},
		{Question: "How do I track my parcel?", Answer: "Use the tracking page.", Intent: "tracking"},
	}, knowledge.Options{Normalizer: textnorm.New(true)})
	require.NoError(t, err)

	examples := []Example{
		{Text: "price of delivery", Label: "pricing"},
		{Text: "track my parcel", Label: "tracking"},
	}
	query := embed(t, kb, "price of delivery")

	model, err := Train(kb.Space(), kb.Normalize, examples)
	require.NoError(t, err)
	c, err := NewClassifier(model, kb.Space())
	require.NoError(t, err)

	label, confidence := c.Classify(query)
	assert.Equal(t, "pricing", label)
	assert.InDelta(t, 1.0, confidence, 1e-9)

	// Keeping stopwords loses the "price delivery" bigram the query carries.
	model, err = Train(kb.Space(), nil, examples)
	require.NoError(t, err)
	c, err = NewClassifier(model, kb.Space())
	require.NoError(t, err)

	_, confidence = c.Classify(query)
	assert.Less(t, confidence, 0.999)
}

func TestTrain_Errors(t *testing.T) {
	kb := hospitalKB(t)

	_, err := Train(kb.Space(), kb.Normalize, []Example{{Text: "banana", Label: "fruit"}})
	assert.ErrorIs(t, err, ErrNoExamples)

	_, err = Train(nil, nil, HospitalLexicon())
	assert.ErrorIs(t, err, vectorizer.ErrUnfittedSpace)
}

func TestModel_SaveLoad(t *testing.T) {
	kb := hospitalKB(t)
	model, err := Train(kb.Space(), kb.Normalize, ExamplesFromKnowledgeBase(kb))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "intent.yaml")
	require.NoError(t, model.Save(path))

	loaded, err := LoadModel(path)
	require.NoError(t, err)
	assert.Equal(t, model.Labels(), loaded.Labels())
	assert.Equal(t, model.Fingerprint, loaded.Fingerprint)

	original, err := NewClassifier(model, kb.Space())
	require.NoError(t, err)
	restored, err := NewClassifier(loaded, kb.Space())
	require.NoError(t, err)

	query := embed(t, kb, "visiting hours")
	wantLabel, wantConf := original.Classify(query)
	gotLabel, gotConf := restored.Classify(query)
	assert.Equal(t, wantLabel, gotLabel)
	assert.InDelta(t, wantConf, gotConf, 1e-9)
}

func TestNewClassifier_SpaceMismatch(t *testing.T) {
	kb := hospitalKB(t)
	model, err := Train(kb.Space(), kb.Normalize, ExamplesFromKnowledgeBase(kb))
	require.NoError(t, err)

	other, err := vectorizer.Fit([]string{"completely different corpus"}, vectorizer.DefaultOptions())
	require.NoError(t, err)

	_, err = NewClassifier(model, other)
	assert.ErrorIs(t, err, ErrSpaceMismatch)
}

func TestHospitalLexicon(t *testing.T) {
	examples := HospitalLexicon()
	labels := make(map[string]bool)
	for _, ex := range examples {
		labels[ex.Label] = true
	}
	assert.Len(t, labels, 10)
	assert.Equal(t, "appointment", examples[0].Label)
}
