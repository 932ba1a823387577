package observability

import "testing"

// The metric vars register with the default registry at init; these tests
// make sure the label cardinalities stay consistent with the Record API.

func TestRecordRunExecution(t *testing.T) {
	RecordRunExecution("resume_analysis", "success", 1200)
	RecordRunExecution("resume_analysis", "error", 300)
	RecordRunExecution("refinement", "cancelled", 50)
}

func TestRecordStageExecution(t *testing.T) {
	RecordStageExecution("resume_parser", "success", 800)
	RecordStageExecution("level_classifier", "retried", 400)
	RecordStageExecution("formatter", "error", 100)
}

func TestRecordCompletionCall(t *testing.T) {
	RecordCompletionCall("gemini-2.5-flash", "success", 950)
	RecordCompletionCall("gemini-2.5-flash", "error", 30)
}

func TestSessionAndHealMetrics(t *testing.T) {
	SetActiveSessions(3)
	SetActiveSessions(0)
	RecordHealOutcome("exact_match", "valid")
	RecordHealOutcome("stretch", "repaired")
	RecordHealOutcome("trajectory", "degraded")
}
