package paraphrase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/boristopalov/verbalgym/pkg/observability"
)

const paraphrasePrompt = `Rewrite the following text so that it keeps exactly the same meaning, facts, numbers and names, but uses different wording. Reply with the rewritten text only.

Text: %s`

// Completer produces a text completion for a prompt.
type Completer interface {
	Complete(ctx context.Context, model string, prompt string) (string, error)
}

// LLM returns an Override method that renders the first template and asks
// the completer for a paraphrase of it.
func LLM(c Completer, model string) Method {
	provider := "unknown"
	if p, ok := c.(interface{ Provider() string }); ok {
		provider = p.Provider()
	}

	return Override(func(ctx context.Context, templates []string, args Args) (string, error) {
		if len(templates) == 0 {
			return "", ErrNoTemplates
		}
		base, err := Render(templates[0], args)
		if err != nil {
			return "", err
		}

		start := time.Now()
		response, err := c.Complete(ctx, model, fmt.Sprintf(paraphrasePrompt, base))
		elapsed := int(time.Since(start).Milliseconds())
		if err != nil {
			observability.RecordParaphraseCall(provider, "error", elapsed)
			return "", fmt.Errorf("failed to paraphrase %q: %w", base, err)
		}

		response = strings.TrimSpace(response)
		if response == "" {
			observability.RecordParaphraseCall(provider, "error", elapsed)
			return "", errors.New("empty paraphrase from " + provider)
		}
		observability.RecordParaphraseCall(provider, "success", elapsed)
		return response, nil
	})
}
