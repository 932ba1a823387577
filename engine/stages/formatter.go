package stages

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/careerscout-labs/resumeanalysis/engine/envelope"
)

// FormatterStage renders everything accumulated on the context into the
// final markdown report. Free-text output: the reply is taken verbatim
// after minimal cleanup, never parsed.
type FormatterStage struct {
	base
}

// NewFormatterStage builds the formatter stage.
func NewFormatterStage(model string, client CompletionClient, logger Logger, events EventSink) *FormatterStage {
	return &FormatterStage{base: newBase(StageFormatter, KeyFormattedOutput, model, ShapeText, client, logger, events)}
}

// Execute implements Stage.
func (s *FormatterStage) Execute(ctx context.Context, snap *envelope.PipelineContext) (*envelope.StageResult, error) {
	start := time.Now()
	if snap.Consensus == nil || snap.Batch == nil {
		return nil, NewTerminal(s.name, fmt.Errorf("formatter requires consensus and validated batch on context"))
	}
	text, err := s.complete(ctx, buildFormatterPrompt(snap))
	if err != nil {
		return nil, s.classify(err)
	}
	text = stripCodeFence(strings.TrimSpace(text))
	if text == "" {
		return nil, NewTerminal(s.name, fmt.Errorf("formatter returned empty output"))
	}
	s.preview(text)
	return envelope.NewFreeTextResult(s.name, text, time.Since(start)), nil
}

// Apply implements Stage.
func (s *FormatterStage) Apply(pc *envelope.PipelineContext, res *envelope.StageResult) error {
	if res.Kind != envelope.ResultFreeText {
		return fmt.Errorf("stage %s: unexpected result kind %s", s.name, res.Kind)
	}
	pc.FormattedOutput = res.Text
	pc.SetOutput(s.outputKey, res.Text)
	return nil
}

// stripCodeFence removes a whole-reply markdown fence if the model added
// one despite instructions.
func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	body, ok := strings.CutSuffix(text, "```")
	if !ok {
		return text
	}
	if idx := strings.IndexByte(body, '\n'); idx >= 0 {
		return strings.TrimSpace(body[idx+1:])
	}
	return text
}
