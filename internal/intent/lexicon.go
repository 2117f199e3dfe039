package intent

// hospitalLexicon seeds the hospital-desk intents with short cue phrases.
var hospitalLexicon = map[string][]string{
	"appointment":     {"appointment", "book", "schedule", "visit", "consultation", "see doctor"},
	"pricing":         {"price", "cost", "how much", "expensive", "fee", "charge", "bill"},
	"hospital_info":   {"hours", "visiting", "location", "address", "directions", "parking"},
	"emergency":       {"emergency", "urgent", "ambulance", "911", "critical", "accident"},
	"departments":     {"department", "specialist", "doctor", "cardiology", "neurology", "oncology"},
	"insurance":       {"insurance", "cover", "nhif", "payment", "billing", "claim"},
	"medical_records": {"records", "results", "report", "test", "x-ray", "lab"},
	"symptoms":        {"pain", "fever", "headache", "chest", "stomach", "symptoms"},
	"pharmacy":        {"medicine", "prescription", "drug", "pharmacy", "medication"},
	"general":         {"hello", "hi", "greetings", "thank you", "bye", "goodbye", "help"},
}

// HospitalLexicon returns the built-in hospital intent cue phrases as training
// examples, ordered by label.
func HospitalLexicon() []Example {
	var out []Example
	for _, label := range sortedKeys(hospitalLexicon) {
		for _, phrase := range hospitalLexicon[label] {
			out = append(out, Example{Text: phrase, Label: label})
		}
	}
	return out
}
