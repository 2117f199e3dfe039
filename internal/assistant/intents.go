package assistant

import (
	"fmt"

	"github.com/supportdesk/qa-assistant/internal/intent"
	"github.com/supportdesk/qa-assistant/internal/knowledge"
)

// IntentSource builds a classifier bound to a knowledge base's vector space.
// It is called at startup and after every reload.
type IntentSource func(kb *knowledge.KnowledgeBase) (*intent.Classifier, error)

// TrainModel trains an intent model from the knowledge base's intent column,
// plus the hospital lexicon when useLexicon is set. A positive floor replaces
// the default confidence floor.
func TrainModel(kb *knowledge.KnowledgeBase, useLexicon bool, floor float64) (*intent.Model, error) {
	examples := intent.ExamplesFromKnowledgeBase(kb)
	if useLexicon {
		examples = append(examples, intent.HospitalLexicon()...)
	}

	model, err := intent.Train(kb.Space(), kb.Normalize, examples)
	if err != nil {
		return nil, fmt.Errorf("train intents: %w", err)
	}
	if floor > 0 {
		model.Floor = floor
	}
	return model, nil
}

// TrainedIntents trains a fresh classifier on every load.
func TrainedIntents(useLexicon bool, floor float64) IntentSource {
	return func(kb *knowledge.KnowledgeBase) (*intent.Classifier, error) {
		model, err := TrainModel(kb, useLexicon, floor)
		if err != nil {
			return nil, err
		}
		return intent.NewClassifier(model, kb.Space())
	}
}

// ModelIntents loads a saved model from path. When the model was trained
// against another vocabulary, or is missing, it defers to fallback if set.
func ModelIntents(path string, fallback IntentSource) IntentSource {
	return func(kb *knowledge.KnowledgeBase) (*intent.Classifier, error) {
		model, err := intent.LoadModel(path)
		if err == nil {
			var c *intent.Classifier
			c, err = intent.NewClassifier(model, kb.Space())
			if err == nil {
				return c, nil
			}
		}
		if fallback == nil {
			return nil, err
		}
		return fallback(kb)
	}
}
