// Package guard runs the content-moderation pre-filter for incoming chat
// messages.
package guard

import (
	"context"
	"math/rand"

	"github.com/felixgeelhaar/librarian/internal/observe"
	"github.com/felixgeelhaar/librarian/internal/provider"
)

// refusals are the fixed redirect replies used verbatim when a message is
// flagged. One is chosen uniformly at random.
var refusals = []string{
	"I'm here to help you find great books! Please keep our conversation friendly and respectful. What kind of book are you looking for?",
	"Let's keep our chat positive! I'd love to recommend some amazing books. What genres or themes interest you?",
	"I'm designed to help with book recommendations in a friendly environment. What type of story are you in the mood for?",
	"I prefer to keep our conversation respectful. How about we talk about books instead? What's your favorite genre?",
	"Let's focus on finding you some great reading material! What kind of books do you usually enjoy?",
}

// Guard checks messages against an external moderation classifier.
//
// Classifier failures fail open: availability of the chat feature outranks
// moderation strictness, so an unreachable classifier never blocks a request.
type Guard struct {
	classifier provider.Classifier
	obs        *observe.Observer
}

func New(classifier provider.Classifier, obs *observe.Observer) *Guard {
	return &Guard{classifier: classifier, obs: obs}
}

// Classify reports whether the text is flagged as inappropriate.
// Any classifier error is logged and treated as not flagged.
func (g *Guard) Classify(ctx context.Context, text string) bool {
	if g.classifier == nil {
		return false
	}

	verdict, err := g.classifier.Moderate(ctx, text)
	if err != nil {
		g.obs.Log().Warn().Err(err).Msg("moderation check failed, allowing message")
		return false
	}
	if verdict.Flagged {
		g.obs.Log().Info().Msg("message flagged by moderation")
	}
	return verdict.Flagged
}

// Verdict returns the full moderation result with per-category scores, for
// debugging and logging. Errors fail open to an unflagged verdict.
func (g *Guard) Verdict(ctx context.Context, text string) *provider.Verdict {
	if g.classifier == nil {
		return &provider.Verdict{}
	}
	verdict, err := g.classifier.Moderate(ctx, text)
	if err != nil {
		g.obs.Log().Warn().Err(err).Msg("moderation details unavailable")
		return &provider.Verdict{}
	}
	return verdict
}

// Refusal returns a polite redirect used as the assistant's whole reply for
// a flagged message.
func (g *Guard) Refusal() string {
	return refusals[rand.Intn(len(refusals))]
}

// Refusals exposes the fixed redirect set, so callers can recognize one.
func Refusals() []string {
	out := make([]string, len(refusals))
	copy(out, refusals)
	return out
}
