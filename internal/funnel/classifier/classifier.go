// Package classifier is the capability boundary for inbound-reply
// classification. The engine consumes the tri-state verdict; any
// implementation of the interface is conforming, from substring matching
// to an LLM call.
package classifier

import "context"

// Verdict is the tri-state classification outcome.
type Verdict string

const (
	// Match means the reply satisfies the stage's expected keywords.
	Match Verdict = "MATCH"
	// OffTopicRecognized means the reply is a recognized side question
	// (price, location) that deserves an informational answer.
	OffTopicRecognized Verdict = "OFF_TOPIC_RECOGNIZED"
	// NoMatch means the reply neither matches nor is recognized.
	NoMatch Verdict = "NO_MATCH"
)

// Result carries the verdict and, for recognized off-topic questions, the
// short informational reply to send before steering back on topic.
type Result struct {
	Verdict Verdict
	Reply   string
}

// Classifier decides whether an inbound reply advances the funnel.
type Classifier interface {
	Classify(ctx context.Context, text string, keywords []string) (Result, error)
}
