package dialogue

import (
	"context"
	"fmt"
	"strings"

	"github.com/CURENT/pv-curve-llm/agent/dialogue/ports"
	"github.com/CURENT/pv-curve-llm/agent/params"
)

const questionSystemPrompt = "You are a power-system voltage stability assistant. " +
	"Answer using the provided reference material and session context. " +
	"Be concise and concrete; cite parameter values exactly as given."

// QuestionResponder answers domain questions. Answers about the session's own
// parameters resolve against the live snapshot and the evolution trail, not
// against whatever the text backend believes; everything else goes through
// retrieval plus the text backend, with a deterministic snippet fallback when
// the backend is unavailable.
type QuestionResponder struct {
	retriever ports.Retriever
	provider  ports.Provider
	resolver  *params.Resolver
	k         int
}

// NewQuestionResponder wires the question path. Provider may be nil for a
// fully offline deployment.
func NewQuestionResponder(retriever ports.Retriever, provider ports.Provider, k int) *QuestionResponder {
	if k <= 0 {
		k = 4
	}
	return &QuestionResponder{
		retriever: retriever,
		provider:  provider,
		resolver:  params.NewResolver(),
		k:         k,
	}
}

func (q *QuestionResponder) Respond(ctx context.Context, req Request) (Outcome, error) {
	if name, ok := q.referencedParameter(req.Text); ok && asksForCurrentValue(req.Text) {
		return Outcome{Text: q.answerFromState(name, req)}, nil
	}

	var snippets []ports.Snippet
	if q.retriever != nil {
		found, err := q.retriever.Search(ctx, req.Text, q.k)
		if err == nil {
			snippets = found
		}
		// A retriever error degrades to an unaugmented answer.
	}

	if q.provider != nil {
		in := ports.PromptInput{
			System: questionSystemPrompt,
			Query:  req.Text,
		}
		for _, s := range snippets {
			in.Context = append(in.Context, s.Text)
		}
		if req.History.Summary != "" {
			in.Context = append(in.Context, req.History.Summary)
		}
		if text, err := q.provider.Complete(ctx, in); err == nil && strings.TrimSpace(text) != "" {
			return Outcome{Text: text}, nil
		}
	}

	return Outcome{Text: composeFromSnippets(req.Text, snippets)}, nil
}

// answerFromState reports the live value of a parameter, with its recent
// evolution when the session changed it.
func (q *QuestionResponder) answerFromState(name string, req Request) string {
	value, err := req.Params.Value(name)
	if err != nil {
		return fmt.Sprintf("I don't track a parameter called %q.", name)
	}
	answer := fmt.Sprintf("The current %s is %v.", strings.ReplaceAll(name, "_", " "), value)
	if trail := req.History.Evolution[name]; len(trail) > 0 {
		last := trail[len(trail)-1]
		answer += fmt.Sprintf(" It was changed from %v to %v earlier in this session.", last.Old, last.New)
	}
	return answer
}

// referencedParameter scans the text for a parameter mention. Two-word
// phrases are tried with prefix resolution, single words only as exact
// aliases so free prose does not trip eager prefix hits.
func (q *QuestionResponder) referencedParameter(text string) (string, bool) {
	words := strings.Fields(strings.ToLower(text))
	for i := 0; i+1 < len(words); i++ {
		if name, ok := q.resolver.Resolve(trimWordPunct(words[i]) + " " + trimWordPunct(words[i+1])); ok {
			return name, true
		}
	}
	for _, w := range words {
		if name, ok := q.resolver.ResolveExact(trimWordPunct(w)); ok {
			return name, true
		}
	}
	return "", false
}

func asksForCurrentValue(text string) bool {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "current") || strings.Contains(lower, "currently") {
		return true
	}
	return strings.HasPrefix(lower, "what is") || strings.HasPrefix(lower, "what's")
}

func trimWordPunct(w string) string {
	return strings.Trim(w, ".,:;?!\"'()")
}

// composeFromSnippets is the offline answer path: the best retrieved
// passages, verbatim, with provenance.
func composeFromSnippets(query string, snippets []ports.Snippet) string {
	if len(snippets) == 0 {
		return "I don't have reference material covering that. " +
			"Try asking about PV curves, the nose point, load margin, or the sweep parameters."
	}
	var b strings.Builder
	b.WriteString(snippets[0].Text)
	if len(snippets) > 1 {
		b.WriteString("\n\nRelated: ")
		b.WriteString(snippets[1].Text)
	}
	return b.String()
}

var _ Responder = (*QuestionResponder)(nil)
