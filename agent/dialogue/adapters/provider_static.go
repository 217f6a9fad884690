package adapters

import (
	"context"
	"strings"

	"github.com/CURENT/pv-curve-llm/agent/dialogue/ports"
)

// StaticProvider is the offline text backend: it composes a deterministic
// reply from the query and whatever context was assembled for it. It keeps
// the agent usable (and its tests hermetic) without any model runtime.
type StaticProvider struct{}

func NewStaticProvider() *StaticProvider {
	return &StaticProvider{}
}

func (p *StaticProvider) Complete(_ context.Context, in ports.PromptInput) (string, error) {
	if len(in.Context) == 0 {
		return "", nil // let callers use their own fallback text
	}
	var b strings.Builder
	b.WriteString(in.Context[0])
	for _, extra := range in.Context[1:] {
		if strings.HasPrefix(extra, "Recent turns") || strings.HasPrefix(extra, "Recent simulations") {
			continue // session digests inform a model, not a verbatim reply
		}
		b.WriteString("\n\n")
		b.WriteString(extra)
		break
	}
	return b.String(), nil
}

var _ ports.Provider = (*StaticProvider)(nil)
