package service

import (
	"sort"
	"strconv"
	"strings"

	"github.com/noah-isme/sma-timetable-viewer/internal/dto"
	"github.com/noah-isme/sma-timetable-viewer/internal/models"
)

// DefaultConstraintNamespace is the package prefix the solver puts on
// constraint identifiers that have no "/" separator.
const DefaultConstraintNamespace = "com.schoolplanner.timetable.domain."

// HardSoft is a parsed "<n>hard/<m>soft" score.
type HardSoft struct {
	Hard int
	Soft int
}

// ParseScore parses a hard/soft score string. Missing or malformed
// components count as zero.
func ParseScore(raw string) HardSoft {
	if raw == "" {
		return HardSoft{}
	}
	parts := strings.Split(raw, "/")
	var score HardSoft
	score.Hard = scoreComponent(parts[0], "hard")
	if len(parts) > 1 {
		score.Soft = scoreComponent(parts[1], "soft")
	}
	return score
}

func scoreComponent(part, suffix string) int {
	text := strings.TrimSpace(strings.Replace(part, suffix, "", 1))
	if text == "" {
		return 0
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0
	}
	return n
}

// SummarizeScore builds the overall score card; an absent score is 0hard/0soft.
func SummarizeScore(raw string) dto.ScoreSummary {
	if raw == "" {
		raw = models.DefaultScore
	}
	score := ParseScore(raw)
	return dto.ScoreSummary{Raw: raw, Hard: score.Hard, Soft: score.Soft, Feasible: score.Hard == 0}
}

// CleanConstraintName turns a raw identifier into a display name.
//
//	"pkg.Domain.Class/Room conflict"          -> "Room conflict"
//	"<namespace>Lesson.Teacher conflict"      -> "Teacher conflict"
func CleanConstraintName(id, namespace string) string {
	if _, after, found := strings.Cut(id, "/"); found {
		return after
	}
	cleaned := id
	if namespace != "" {
		cleaned = strings.TrimPrefix(cleaned, namespace)
	}
	if dot := strings.Index(cleaned, "."); dot > 0 {
		cleaned = cleaned[dot+1:]
	}
	return cleaned
}

// ClassifyConstraints splits constraint matches into hard and soft groups.
// A match is hard when its hard component is non-zero; everything else,
// including 0hard/0soft, is soft. Within a group violated entries come
// first, most negative first; the rest keep input order.
func ClassifyConstraints(matches models.ConstraintMatches, namespace string) dto.ConstraintDiagnostics {
	out := dto.ConstraintDiagnostics{
		Hard: []dto.ConstraintDiagnostic{},
		Soft: []dto.ConstraintDiagnostic{},
	}
	for _, match := range matches {
		score := ParseScore(match.Score)
		diag := dto.ConstraintDiagnostic{
			Name:      CleanConstraintName(match.Name, namespace),
			RawScore:  match.Score,
			HardScore: score.Hard,
			SoftScore: score.Soft,
		}
		if score.Hard != 0 {
			diag.Violated = score.Hard < 0
			out.Hard = append(out.Hard, diag)
			continue
		}
		diag.Violated = score.Soft < 0
		out.Soft = append(out.Soft, diag)
	}

	rankViolations(out.Hard, func(d dto.ConstraintDiagnostic) int { return d.HardScore })
	rankViolations(out.Soft, func(d dto.ConstraintDiagnostic) int { return d.SoftScore })
	return out
}

func rankViolations(list []dto.ConstraintDiagnostic, value func(dto.ConstraintDiagnostic) int) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := value(list[i]), value(list[j])
		switch {
		case a < 0 && b >= 0:
			return true
		case a < 0 && b < 0:
			return a < b
		default:
			return false
		}
	})
}
