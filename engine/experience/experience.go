// Package experience computes the years-of-experience breakdown from raw
// resume text before any model sees it. Date ranges in both "Month YYYY"
// and "MM/YY" styles are recognized; months covered by overlapping roles
// are de-duplicated so the total is calendar time actually worked.
package experience

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/careerscout-labs/resumeanalysis/engine/envelope"
)

// maxBreakdownRoles caps the per-role breakdown in the summary.
const maxBreakdownRoles = 10

var monthNumbers = map[string]int{
	"january": 1, "jan": 1,
	"february": 2, "feb": 2,
	"march": 3, "mar": 3,
	"april": 4, "apr": 4,
	"may":  5,
	"june": 6, "jun": 6,
	"july": 7, "jul": 7,
	"august": 8, "aug": 8,
	"september": 9, "sept": 9, "sep": 9,
	"october": 10, "oct": 10,
	"november": 11, "nov": 11,
	"december": 12, "dec": 12,
}

const monthNames = `January|February|March|April|May|June|July|August|September|October|November|December|Jan|Feb|Mar|Apr|Jun|Jul|Aug|Sept|Sep|Oct|Nov|Dec`

var (
	// "May 2019 - Present" or "Jan 2017 - Mar 2020". The dash may be an
	// en dash; resumes use both.
	textRangeRe = regexp.MustCompile(`(?i)(` + monthNames + `)\s+(\d{4})\s*[-–]\s*(Present|(` + monthNames + `)\s+(\d{4}))`)

	// "05/19 - Present" or "1/2017 - 3/2020".
	numericRangeRe = regexp.MustCompile(`(?i)(\d{1,2})/(\d{2,4})\s*[-–]\s*(Present|(\d{1,2})/(\d{2,4}))`)

	// "9 years of experience", "12+ years leading", etc.
	statedRe = regexp.MustCompile(`(?i)(\d+)\+?\s*years?\s*(?:of\s+)?(?:experience|at|in|building|leading)`)
)

type monthKey struct {
	year  int
	month int
}

// Summarize extracts the experience summary from resume text. It never
// fails: a resume without recognizable date ranges yields a zeroed summary
// with CareerSpan "Unknown".
func Summarize(resumeText string) *envelope.ExperienceSummary {
	return summarizeAt(resumeText, time.Now())
}

func summarizeAt(resumeText string, now time.Time) *envelope.ExperienceSummary {
	var roles []envelope.RoleSpan
	worked := make(map[monthKey]bool)

	for _, m := range textRangeRe.FindAllStringSubmatch(resumeText, -1) {
		startMonth := monthNumbers[strings.ToLower(m[1])]
		startYear, _ := strconv.Atoi(m[2])
		endDisplay := "Present"
		var endMonth, endYear int
		if strings.EqualFold(m[3], "present") {
			endMonth, endYear = int(now.Month()), now.Year()
		} else {
			endMonth = monthNumbers[strings.ToLower(m[4])]
			endYear, _ = strconv.Atoi(m[5])
			endDisplay = fmt.Sprintf("%s %d", m[4], endYear)
		}
		addSpan(&roles, worked,
			fmt.Sprintf("%s %d", m[1], startYear), endDisplay,
			startYear, startMonth, endYear, endMonth)
	}

	for _, m := range numericRangeRe.FindAllStringSubmatch(resumeText, -1) {
		startMonth, _ := strconv.Atoi(m[1])
		startYear := normalizeYear(m[2])
		if startMonth < 1 || startMonth > 12 {
			continue
		}
		endDisplay := "Present"
		var endMonth, endYear int
		if strings.EqualFold(m[3], "present") {
			endMonth, endYear = int(now.Month()), now.Year()
		} else {
			endMonth, _ = strconv.Atoi(m[4])
			endYear = normalizeYear(m[5])
			if endMonth < 1 || endMonth > 12 {
				continue
			}
			endDisplay = fmt.Sprintf("%02d/%s", endMonth, m[5])
		}
		addSpan(&roles, worked,
			fmt.Sprintf("%02d/%d", startMonth, startYear), endDisplay,
			startYear, startMonth, endYear, endMonth)
	}

	summary := &envelope.ExperienceSummary{
		TotalYears: round1(float64(len(worked)) / 12),
		CareerSpan: "Unknown",
		NumRoles:   len(roles),
	}

	if len(worked) > 0 {
		earliest := monthKey{year: math.MaxInt32}
		latest := monthKey{year: math.MinInt32}
		for k := range worked {
			if k.year < earliest.year || (k.year == earliest.year && k.month < earliest.month) {
				earliest = k
			}
			if k.year > latest.year || (k.year == latest.year && k.month > latest.month) {
				latest = k
			}
		}
		summary.CareerSpan = fmt.Sprintf("%d to %d", earliest.year, latest.year)
	}

	if len(roles) > 0 {
		totalMonths := 0
		for _, r := range roles {
			totalMonths += r.DurationMonths
		}
		summary.AvgTenureYears = round1(float64(totalMonths) / float64(len(roles)) / 12)
		if len(roles) > maxBreakdownRoles {
			roles = roles[:maxBreakdownRoles]
		}
		summary.RoleBreakdown = roles
	}

	if stated := maxStatedYears(resumeText); stated > 0 {
		summary.StatedYears = &stated
	}
	return summary
}

func addSpan(roles *[]envelope.RoleSpan, worked map[monthKey]bool, startDisplay, endDisplay string, startYear, startMonth, endYear, endMonth int) {
	months := (endYear-startYear)*12 + (endMonth - startMonth)
	if months <= 0 {
		return
	}
	for y := startYear; y <= endYear; y++ {
		for m := 1; m <= 12; m++ {
			if (y == startYear && m < startMonth) || (y == endYear && m > endMonth) {
				continue
			}
			worked[monthKey{year: y, month: m}] = true
		}
	}
	*roles = append(*roles, envelope.RoleSpan{
		Start:          startDisplay,
		End:            endDisplay,
		DurationMonths: months,
		DurationYears:  round1(float64(months) / 12),
	})
}

// normalizeYear expands two-digit years onto the 2000s; resumes rarely
// carry pre-2000 numeric dates in MM/YY form.
func normalizeYear(raw string) int {
	y, _ := strconv.Atoi(raw)
	if len(raw) == 2 {
		return 2000 + y
	}
	return y
}

func maxStatedYears(resumeText string) int {
	best := 0
	for _, m := range statedRe.FindAllStringSubmatch(resumeText, -1) {
		if y, err := strconv.Atoi(m[1]); err == nil && y > best {
			best = y
		}
	}
	return best
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
