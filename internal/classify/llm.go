package classify

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/amishk599/jobintake/internal/extract"
	"github.com/amishk599/jobintake/internal/model"
)

//go:embed prompts/message_check.md
var messageCheckPromptRaw string

// MessageCheckTemplate is the prompt used by LLM.
var MessageCheckTemplate = template.Must(template.New("message_check").Parse(messageCheckPromptRaw))

// maxPromptBody bounds the message text sent to the model.
const maxPromptBody = 4000

// LLM asks a language model whether a message is promotional.
type LLM struct {
	provider LLMProvider
	tmpl     *template.Template
}

// NewLLM returns an LLM classifier.
func NewLLM(provider LLMProvider, tmpl *template.Template) *LLM {
	return &LLM{provider: provider, tmpl: tmpl}
}

type llmVerdict struct {
	Reject bool   `json:"reject"`
	Reason string `json:"reason"`
}

// ClassifyMessage implements model.MessageClassifier.
func (l *LLM) ClassifyMessage(ctx context.Context, f model.MessageFeatures) (model.Verdict, error) {
	f.Text = extract.Truncate(f.Text, maxPromptBody)

	var prompt bytes.Buffer
	if err := l.tmpl.Execute(&prompt, f); err != nil {
		return model.Verdict{}, fmt.Errorf("render prompt: %w", err)
	}

	raw, err := l.provider.Complete(ctx, prompt.String())
	if err != nil {
		return model.Verdict{}, fmt.Errorf("llm complete: %w", err)
	}

	var v llmVerdict
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return model.Verdict{}, fmt.Errorf("unmarshal verdict JSON: %w", err)
	}
	return model.Verdict{Reject: v.Reject, By: model.VerdictByAI, Reason: v.Reason}, nil
}
