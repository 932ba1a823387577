package stages

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/careerscout-labs/resumeanalysis/engine/envelope"
)

// Prompt builders. Each stage assembles its prompt from the context
// snapshot; upstream outputs are embedded as JSON so downstream models see
// exactly what was recorded, not a lossy re-rendering.

const parserInstruction = `You are a resume parser. Extract structured information from the resume text below.

The years-of-experience figures in the SYSTEM NOTE are pre-calculated from the
resume's date ranges with overlapping roles de-duplicated. Use them verbatim;
do not recalculate or estimate from dates yourself.

Return a JSON object with exactly these fields:
  "current_title": current or most recent job title
  "current_company": current or most recent employer
  "total_yoe": the pre-calculated total from the SYSTEM NOTE
  "skills": list of technical and professional skills
  "education": list of degrees and certifications
  "stated_interests": explicit career goals or objectives mentioned
  "side_projects": personal projects, open source, hackathons
  "qualitative_trend": the career trajectory pattern (e.g. "Frontend to Fullstack to Backend")
  "inferred_direction": where the career seems to be heading

Return ONLY valid JSON, no additional text.`

const classifierInstruction = `You are a career level classifier. Your only job is to classify the
candidate's career level; you do NOT provide job recommendations.

First identify the candidate's profession from the parsed resume. It can be
any field: engineering, design, law, healthcare, culinary, trades, academia.
Then map their seniority in that profession's actual career ladder onto a
normalized 1-10 scale:

  1-2 entry/intern, 3 junior, 4 mid, 5 senior, 6 lead/staff,
  7 principal/director, 8 distinguished/VP, 9-10 executive.

Do not assume tech leveling applies to every profession; use the ladder that
field actually has.

Return a JSON object with exactly these fields:
  "profession": the identified profession
  "normalized_level": integer 1-10
  "level_title": the title for this level in this profession
  "equivalent_titles": list of alternative titles
  "confidence": 0.0-1.0
  "evidence": list of supporting observations
  "reasoning": brief explanation

Return ONLY valid JSON, no additional text.`

const conservativeInstruction = `You are the conservative evaluator: a skeptical hiring manager. You tend to
place candidates at LOWER levels. Look for gaps, missing qualifications,
job hopping, lack of progression, and over-weighted company pedigree.
Challenge the initial assessment below.

Return ONLY valid JSON with exactly these fields:
  "conservative_level": integer 1-10, likely same or lower than the initial level
  "title": the title matching your proposed level
  "confidence": 0.0-1.0
  "rationale": what is missing and what would prove the higher level`

const optimisticInstruction = `You are the optimistic evaluator: a talent-seeking recruiter. You tend to
place candidates at HIGHER levels. Look for hidden potential, transferable
skills, rapid trajectory, and side projects that signal capability beyond
the current title. Advocate for the candidate against the initial
assessment below.

Return ONLY valid JSON with exactly these fields:
  "optimistic_level": integer 1-10, likely same or higher than the initial level
  "title": the title matching your proposed level
  "confidence": 0.0-1.0
  "rationale": which undervalued signals justify the higher level`

var tierBriefs = map[envelope.Tier]string{
	envelope.TierExactMatch: `YOUR TIER: EXACT MATCH — "jobs you could get next week".
Find a role at the SAME level as the candidate's current role, with similar
title, scope and responsibility.`,
	envelope.TierLevelUp: `YOUR TIER: LEVEL UP — "your next promotion, externally".
Find a role ONE LEVEL ABOVE the candidate's current role: the senior, lead
or manager version of their current title.`,
	envelope.TierStretch: `YOUR TIER: STRETCH — "ambitious but achievable".
Find a role 1-2 LEVELS ABOVE: director or principal scope. Prefer
high-growth companies and roles that represent a real scope increase.
Pick a DIFFERENT company than the other tiers would.`,
	envelope.TierTrajectory: `YOUR TIER: TRAJECTORY — "where your career wants to go".
Find an ASPIRATIONAL role aligned with the candidate's long-term direction,
not just the next step: VP, head-of, or founding-team scope at an industry
leader. Pick a DIFFERENT company than the other tiers would.`,
}

// buildParserPrompt injects the precomputed experience note ahead of the
// resume text so the model never re-derives the figures.
func buildParserPrompt(snap *envelope.PipelineContext) string {
	var b strings.Builder
	b.WriteString(parserInstruction)
	b.WriteString("\n\n")
	if exp := snap.Experience; exp != nil {
		b.WriteString("[SYSTEM NOTE - USE THESE EXACT VALUES:]\n")
		fmt.Fprintf(&b, "- Total Years of Experience: %.1f years (calculated from dates, de-duped for overlapping roles)\n", exp.TotalYears)
		fmt.Fprintf(&b, "- Career Span: %s\n", exp.CareerSpan)
		fmt.Fprintf(&b, "- Number of Roles: %d\n", exp.NumRoles)
		fmt.Fprintf(&b, "- Average Tenure: %.1f years per role\n", exp.AvgTenureYears)
		if exp.StatedYears != nil {
			fmt.Fprintf(&b, "- Resume states: %d+ years (for reference)\n", *exp.StatedYears)
		}
		b.WriteString("\n")
	}
	b.WriteString("Resume:\n\n")
	b.WriteString(snap.ResumeText)
	return b.String()
}

func buildClassifierPrompt(snap *envelope.PipelineContext) string {
	var b strings.Builder
	b.WriteString(classifierInstruction)
	b.WriteString("\n\nParsed resume:\n")
	b.WriteString(mustJSON(snap.Parsed))
	b.WriteString("\n\nOriginal resume text:\n\n")
	b.WriteString(snap.ResumeText)
	return b.String()
}

func buildEvaluatorPrompt(role envelope.VoteRole, snap *envelope.PipelineContext) string {
	var b strings.Builder
	switch role {
	case envelope.RoleConservative:
		b.WriteString(conservativeInstruction)
	case envelope.RoleOptimistic:
		b.WriteString(optimisticInstruction)
	}
	b.WriteString("\n\nInitial level classification:\n")
	b.WriteString(mustJSON(snap.Initial))
	b.WriteString("\n\nParsed resume:\n")
	b.WriteString(mustJSON(snap.Parsed))
	return b.String()
}

// buildScoutPrompt produces a tier scout prompt. avoid lists companies whose
// postings already failed validation; a repair attempt must not resurface
// them.
func buildScoutPrompt(tier envelope.Tier, snap *envelope.PipelineContext, avoid []string) string {
	now := time.Now()
	cutoff := now.AddDate(0, 0, -7).Format("2006-01-02")

	var b strings.Builder
	b.WriteString("You are a job scout. Find ONE real, current job posting for your tier.\n\n")
	fmt.Fprintf(&b, "DATE CONTEXT: today is %s; only consider postings after %s.\n\n", now.Format("January 2, 2006"), cutoff)
	b.WriteString(`URL RULES:
1. Produce a general web search URL, never a location-filtered jobs portal.
2. Format: https://www.google.com/search?q=[Company]+[Job+Title]+careers
3. Company name first, then the full job title with punctuation stripped, then "careers".
   Example: https://www.google.com/search?q=Stripe+Senior+Product+Manager+careers

`)
	b.WriteString(tierBriefs[tier])
	b.WriteString("\n\nCalibrated level classification:\n")
	b.WriteString(mustJSON(snap.Consensus))
	b.WriteString("\nParsed resume:\n")
	b.WriteString(mustJSON(snap.Parsed))
	if snap.Feedback != "" {
		fmt.Fprintf(&b, "\nThe candidate asked to refine the results: %q. Honor this constraint when choosing the posting.\n", snap.Feedback)
	}
	if len(avoid) > 0 {
		fmt.Fprintf(&b, "\nDo NOT recommend these companies; their postings failed validation: %s.\n", strings.Join(avoid, ", "))
	}
	fmt.Fprintf(&b, `
Return EXACTLY ONE job as a single JSON object (not an array) with fields:
  "tier": %q
  "title", "company", "search_url", "posted_date", "location",
  "job_description_snippet": 2-3 sentences from the actual posting,
  "salary_if_visible", "why_matches": list of reasons, "fit_score": 1-10.

Return ONLY valid JSON, no additional text.`, string(tier))
	return b.String()
}

// buildFormatterPrompt renders everything accumulated so far into the
// final-report request. The figures in the data block are pre-calculated;
// the formatter must copy them, not re-derive them.
func buildFormatterPrompt(snap *envelope.PipelineContext) string {
	var b strings.Builder
	b.WriteString(`Produce the final resume-analysis report as PLAIN MARKDOWN TEXT, not JSON
and not wrapped in code fences.

Rules:
- Use the EXACT pre-calculated figures from the data below (total YOE, avg
  tenure); do not recalculate or round them.
- Sections, in order: "## RESUME ANALYSIS" (current role, estimated market
  compensation as a range, profession, key skills, career trajectory,
  inferred direction), "## LEVEL CLASSIFICATION RESULT" (final level and
  title, confidence, agreement as X/3, a vote breakdown listing each
  evaluator's level with its weight — most likely 50%, conservative 25%,
  optimistic 25% — and why the final level won), then one section per job
  tier in order: EXACT MATCH, LEVEL UP, STRETCH, TRAJECTORY.
- Each tier section header: "## [TIER]: [Company], [Job Title]", followed by
  the fit score, the apply link as
  [Search: Company - Job Title](search_url), the description snippet as a
  quote, an expected compensation range, and resume-grounded match reasons.
- STRETCH additionally gets "What You'd Need to Prove"; TRAJECTORY gets a
  long-term trajectory timeline.
- If a job entry is marked degraded, surface its caveat verbatim instead of
  inventing details.
- Close with a "## REFINE THESE RESULTS?" section suggesting example
  refinement requests.
- Put a blank line between every field and bullet.

Data:
`)
	b.WriteString("\nExperience summary:\n")
	b.WriteString(mustJSON(snap.Experience))
	b.WriteString("\nParsed resume:\n")
	b.WriteString(mustJSON(snap.Parsed))
	b.WriteString("\nCalibrated level:\n")
	b.WriteString(mustJSON(snap.Consensus))
	b.WriteString("\nValidated job recommendations:\n")
	b.WriteString(mustJSON(snap.Batch))
	return b.String()
}

func mustJSON(v any) string {
	if v == nil {
		return "null"
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "null"
	}
	return string(data)
}
