package extractor

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// raw* mirror the answer format with every field optional so that
// omissions can be told apart from zero values

type rawAnalysis struct {
	Intent          *rawIntent         `json:"intent"`
	ImpactMap       *rawImpactMap      `json:"impact_map"`
	RiskAssessment  *rawRiskAssessment `json:"risk_assessment"`
	ReviewQuestions []rawQuestion      `json:"review_questions"`
}

type rawIntent struct {
	Summary    string    `json:"summary"`
	Reasoning  string    `json:"reasoning"`
	Confidence flexFloat `json:"confidence"`
}

type rawImpact struct {
	Area        string `json:"area"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

type rawImpactMap struct {
	DirectImpacts      []rawImpact `json:"direct_impacts"`
	IndirectImpacts    []rawImpact `json:"indirect_impacts"`
	AffectedComponents flexStrings `json:"affected_components"`
}

type rawRisk struct {
	Description string      `json:"description"`
	Severity    string      `json:"severity"`
	Mitigation  string      `json:"mitigation"`
	EdgeCases   flexStrings `json:"edge_cases"`
}

type rawRiskAssessment struct {
	OverallRisk       string    `json:"overall_risk"`
	Risks             []rawRisk `json:"risks"`
	BreakingChanges   flexBool  `json:"breaking_changes"`
	RequiresMigration flexBool  `json:"requires_migration"`
}

type rawQuestion struct {
	Question string `json:"question"`
	Context  string `json:"context"`
	Priority string `json:"priority"`
}

// flexFloat accepts 0.8, "0.8" and "80%". Anything else reads as absent.
type flexFloat struct {
	value float64
	set   bool
}

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	*f = flexFloat{}
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		f.value, f.set = n, true
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	s = strings.TrimSpace(s)
	percent := strings.HasSuffix(s, "%")
	n, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil {
		return nil
	}
	if percent {
		n /= 100
	}
	f.value, f.set = n, true
	return nil
}

// flexBool accepts true and "true"
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = flexBool(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v, _ = strconv.ParseBool(strings.TrimSpace(s))
	}
	*b = flexBool(v)
	return nil
}

// flexStrings accepts ["a", "b"] and a bare "a". Any other shape is kept
// as invalid so the caller can record the default.
type flexStrings struct {
	values  []string
	invalid bool
}

func (f *flexStrings) UnmarshalJSON(data []byte) error {
	*f = flexStrings{}
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		f.values = list
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s = strings.TrimSpace(s); s != "" {
			f.values = []string{s}
		}
		return nil
	}

	f.invalid = true
	return nil
}
