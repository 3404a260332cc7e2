package classifier

import (
	"context"
	"strings"
)

// Canned answers for the recognized off-topic questions.
const (
	priceReply    = "Nuestros planes van desde $300 pesos mensuales."
	locationReply = "Estamos en el Centro, pero atendemos 100% en línea a todo México."
)

var (
	priceTerms    = []string{"precio", "costo", "cuanto"}
	locationTerms = []string{"ubicacion", "donde"}
)

// Keyword is the substring-matching classifier. It intercepts the two FAQ
// families (price and location) before the keyword check.
type Keyword struct{}

// NewKeyword creates the keyword classifier.
func NewKeyword() *Keyword {
	return &Keyword{}
}

// Classify never fails; the error return satisfies the interface.
func (k *Keyword) Classify(_ context.Context, text string, keywords []string) (Result, error) {
	lower := strings.ToLower(text)

	if containsAny(lower, priceTerms) {
		return Result{Verdict: OffTopicRecognized, Reply: priceReply}, nil
	}
	if containsAny(lower, locationTerms) {
		return Result{Verdict: OffTopicRecognized, Reply: locationReply}, nil
	}

	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(lower, kw) {
			return Result{Verdict: Match}, nil
		}
	}
	return Result{Verdict: NoMatch}, nil
}

func containsAny(text string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}
