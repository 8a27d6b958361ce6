// Package extractor turns a raw analysis answer into a validated SemanticAnalysis
package extractor

import "strings"

// RiskLevel is the shared severity/priority scale
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// ParseRiskLevel parses a level case-insensitively
func ParseRiskLevel(s string) (RiskLevel, bool) {
	switch level := RiskLevel(strings.ToLower(strings.TrimSpace(s))); level {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return level, true
	default:
		return "", false
	}
}

// Rank orders levels from 1 (low) to 4 (critical); unknown levels rank 0
func (r RiskLevel) Rank() int {
	switch r {
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	case RiskCritical:
		return 4
	default:
		return 0
	}
}

// Intent is what the author was trying to accomplish
type Intent struct {
	Summary    string  `json:"summary"`
	Reasoning  string  `json:"reasoning"`
	Confidence float64 `json:"confidence"`
}

// Impact is one affected area
type Impact struct {
	Area        string    `json:"area"`
	Description string    `json:"description"`
	Severity    RiskLevel `json:"severity"`
}

// ImpactMap lists the direct and indirect impacts of a change
type ImpactMap struct {
	DirectImpacts      []Impact `json:"direct_impacts"`
	IndirectImpacts    []Impact `json:"indirect_impacts"`
	AffectedComponents []string `json:"affected_components"`
}

// Risk is one identified risk
type Risk struct {
	Description string    `json:"description"`
	Severity    RiskLevel `json:"severity"`
	Mitigation  string    `json:"mitigation"`
	EdgeCases   []string  `json:"edge_cases"`
}

// RiskAssessment is the overall risk picture
type RiskAssessment struct {
	OverallRisk       RiskLevel `json:"overall_risk"`
	Risks             []Risk    `json:"risks"`
	BreakingChanges   bool      `json:"breaking_changes"`
	RequiresMigration bool      `json:"requires_migration"`
}

// ReviewQuestion is a question for the author
type ReviewQuestion struct {
	Question string    `json:"question"`
	Context  string    `json:"context"`
	Priority RiskLevel `json:"priority"`
}

// SemanticAnalysis is the validated analysis of one commit.
// Degraded is set when a critical field had to be defaulted.
type SemanticAnalysis struct {
	Intent          Intent           `json:"intent"`
	ImpactMap       ImpactMap        `json:"impact_map"`
	RiskAssessment  RiskAssessment   `json:"risk_assessment"`
	ReviewQuestions []ReviewQuestion `json:"review_questions"`
	Degraded        bool             `json:"degraded"`
	DefaultedFields []string         `json:"defaulted_fields,omitempty"`
}
