package envelope

import (
	"time"

	"github.com/google/uuid"
)

// PipelineContext is the mutable accumulator threaded through a single run.
// It is owned exclusively by that run: parallel stages receive a Clone()
// snapshot taken at group start and publish their outputs for the scheduler
// to merge, so the live context is never written concurrently.
type PipelineContext struct {
	// Identification
	RunID     string `json:"run_id"`
	SessionID string `json:"session_id"`

	// Original input
	ResumeText string    `json:"resume_text"`
	Feedback   string    `json:"feedback,omitempty"` // refinement filter, empty on first run
	ReceivedAt time.Time `json:"received_at"`

	// Typed intermediate outputs
	Experience *ExperienceSummary   `json:"experience,omitempty"`
	Parsed     *ParsedResume        `json:"parsed,omitempty"`
	Initial    *LevelAssessment     `json:"initial,omitempty"`
	Votes      []EvaluatorVote      `json:"votes,omitempty"`
	Consensus  *ConsensusResult     `json:"consensus,omitempty"`
	Batch      *RecommendationBatch `json:"batch,omitempty"`

	// Final formatted document
	FormattedOutput string `json:"formatted_output,omitempty"`

	// Dynamic outputs keyed by stage output key, for audit and prompts.
	Outputs map[string]any `json:"outputs"`
}

// NewPipelineContext creates a context for a fresh run.
func NewPipelineContext(sessionID, resumeText string) *PipelineContext {
	return &PipelineContext{
		RunID:      uuid.NewString(),
		SessionID:  sessionID,
		ResumeText: resumeText,
		ReceivedAt: time.Now().UTC(),
		Outputs:    make(map[string]any),
	}
}

// SetOutput records a stage output under its output key.
func (pc *PipelineContext) SetOutput(key string, value any) {
	if pc.Outputs == nil {
		pc.Outputs = make(map[string]any)
	}
	pc.Outputs[key] = value
}

// GetOutput returns the stage output stored under key, or nil.
func (pc *PipelineContext) GetOutput(key string) any {
	return pc.Outputs[key]
}

// HasOutput reports whether a stage output exists under key.
func (pc *PipelineContext) HasOutput(key string) bool {
	_, ok := pc.Outputs[key]
	return ok
}

// Clone creates a deep copy of the context. Used for parallel-group
// snapshots and for the session store's persisted copy.
func (pc *PipelineContext) Clone() *PipelineContext {
	clone := &PipelineContext{
		RunID:           pc.RunID,
		SessionID:       pc.SessionID,
		ResumeText:      pc.ResumeText,
		Feedback:        pc.Feedback,
		ReceivedAt:      pc.ReceivedAt,
		FormattedOutput: pc.FormattedOutput,
		Outputs:         make(map[string]any, len(pc.Outputs)),
	}

	for k, v := range pc.Outputs {
		clone.Outputs[k] = v
	}

	if pc.Experience != nil {
		e := *pc.Experience
		e.RoleBreakdown = append([]RoleSpan(nil), pc.Experience.RoleBreakdown...)
		clone.Experience = &e
	}
	if pc.Parsed != nil {
		p := *pc.Parsed
		p.Skills = append([]string(nil), pc.Parsed.Skills...)
		p.Education = append([]string(nil), pc.Parsed.Education...)
		p.StatedInterests = append([]string(nil), pc.Parsed.StatedInterests...)
		p.SideProjects = append([]string(nil), pc.Parsed.SideProjects...)
		clone.Parsed = &p
	}
	if pc.Initial != nil {
		a := *pc.Initial
		a.EquivalentTitles = append([]string(nil), pc.Initial.EquivalentTitles...)
		a.Evidence = append([]string(nil), pc.Initial.Evidence...)
		clone.Initial = &a
	}
	if pc.Votes != nil {
		clone.Votes = append([]EvaluatorVote(nil), pc.Votes...)
	}
	if pc.Consensus != nil {
		c := *pc.Consensus
		clone.Consensus = &c
	}
	clone.Batch = pc.Batch.Clone()

	return clone
}
