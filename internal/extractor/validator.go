package extractor

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/tildaslashalef/semdiff/internal/failure"
	"github.com/tildaslashalef/semdiff/internal/loggy"
)

const (
	// DefaultIntentSummary replaces a missing intent summary
	DefaultIntentSummary = "Unable to determine intent"

	// DefaultConfidence replaces a missing or unreadable confidence
	DefaultConfidence = 0.5

	// DefaultMitigation replaces an empty risk mitigation
	DefaultMitigation = "No mitigation suggested"

	// DefaultRiskLevel replaces missing or invalid severities
	DefaultRiskLevel = RiskMedium

	// CriticalFieldPenalty multiplies the confidence once per defaulted critical
	// field. A reported confidence of 0 stays 0; Degraded still marks the result.
	CriticalFieldPenalty = 0.5

	opValidate = "extractor.validate"
)

var (
	jsonFenceRegex  = regexp.MustCompile("(?s)```json\\s*(.*?)```")
	plainFenceRegex = regexp.MustCompile("(?s)```\\s*(.*?)```")
)

// Validator decodes and normalizes raw analysis answers
type Validator struct {
	logger *loggy.Logger
}

// NewValidator creates a new Validator
func NewValidator(logger *loggy.Logger) *Validator {
	if logger == nil {
		logger = loggy.GetGlobalLogger()
	}
	return &Validator{logger: logger}
}

// Validate locates the JSON object in raw, decodes it and fills documented
// defaults. An answer with no decodable JSON object fails with KindParse.
func (v *Validator) Validate(raw string) (*SemanticAnalysis, error) {
	content, err := extractJSON(raw)
	if err != nil {
		v.logger.Debug("Failed to extract JSON", "error", err, "length", len(raw))
		return nil, failure.Wrap(failure.KindParse, opValidate, err)
	}

	var parsed rawAnalysis
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		v.logger.Debug("Failed to decode analysis", "error", err)
		return nil, failure.Wrap(failure.KindParse, opValidate, errors.Wrap(err, "decoding analysis"))
	}

	n := &normalizer{}
	analysis := n.normalize(&parsed)

	if analysis.Degraded {
		v.logger.Warn("Analysis is degraded", "defaulted_fields", analysis.DefaultedFields, "confidence", analysis.Intent.Confidence)
	} else if len(analysis.DefaultedFields) > 0 {
		v.logger.Debug("Filled defaults in analysis", "defaulted_fields", analysis.DefaultedFields)
	}
	return analysis, nil
}

// extractJSON returns the first candidate that is a JSON object: a ```json
// fence, a plain fence, the whole text, then the outermost {...} span
func extractJSON(content string) (string, error) {
	var candidates []string
	if m := jsonFenceRegex.FindStringSubmatch(content); m != nil {
		candidates = append(candidates, m[1])
	}
	if m := plainFenceRegex.FindStringSubmatch(content); m != nil {
		candidates = append(candidates, m[1])
	}
	candidates = append(candidates, content)
	if start, end := strings.Index(content, "{"), strings.LastIndex(content, "}"); start >= 0 && end > start {
		candidates = append(candidates, content[start:end+1])
	}

	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if strings.HasPrefix(c, "{") && json.Valid([]byte(c)) {
			return c, nil
		}
	}
	return "", errors.New("no JSON object found in response")
}

// normalizer tracks defaulted fields while building the analysis
type normalizer struct {
	defaulted []string
	critical  int
}

func (n *normalizer) fill(field string) {
	n.defaulted = append(n.defaulted, field)
}

func (n *normalizer) fillCritical(field string) {
	n.fill(field)
	n.critical++
}

func (n *normalizer) level(field, value string) RiskLevel {
	if level, ok := ParseRiskLevel(value); ok {
		return level
	}
	n.fill(field)
	return DefaultRiskLevel
}

func (n *normalizer) text(field, value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	n.fill(field)
	return fallback
}

// list returns the decoded strings, never nil
func (n *normalizer) list(field string, value flexStrings) []string {
	if value.invalid {
		n.fill(field)
	}
	return nonNil(value.values)
}

func (n *normalizer) normalize(raw *rawAnalysis) *SemanticAnalysis {
	out := &SemanticAnalysis{}

	intent := raw.Intent
	if intent == nil {
		intent = &rawIntent{}
	}
	if s := strings.TrimSpace(intent.Summary); s != "" {
		out.Intent.Summary = s
	} else {
		out.Intent.Summary = DefaultIntentSummary
		n.fillCritical("intent.summary")
	}
	out.Intent.Reasoning = n.text("intent.reasoning", intent.Reasoning, "")
	if intent.Confidence.set && !math.IsNaN(intent.Confidence.value) {
		out.Intent.Confidence = intent.Confidence.value
	} else {
		out.Intent.Confidence = DefaultConfidence
		n.fill("intent.confidence")
	}

	impact := raw.ImpactMap
	if impact == nil {
		n.fill("impact_map")
		impact = &rawImpactMap{}
	}
	out.ImpactMap.DirectImpacts = n.impacts("impact_map.direct_impacts", impact.DirectImpacts)
	out.ImpactMap.IndirectImpacts = n.impacts("impact_map.indirect_impacts", impact.IndirectImpacts)
	out.ImpactMap.AffectedComponents = n.list("impact_map.affected_components", impact.AffectedComponents)

	risk := raw.RiskAssessment
	if risk == nil {
		risk = &rawRiskAssessment{}
	}
	if level, ok := ParseRiskLevel(risk.OverallRisk); ok {
		out.RiskAssessment.OverallRisk = level
	} else {
		out.RiskAssessment.OverallRisk = DefaultRiskLevel
		n.fillCritical("risk_assessment.overall_risk")
	}
	out.RiskAssessment.Risks = make([]Risk, 0, len(risk.Risks))
	for i, r := range risk.Risks {
		prefix := fmt.Sprintf("risk_assessment.risks[%d]", i)
		out.RiskAssessment.Risks = append(out.RiskAssessment.Risks, Risk{
			Description: n.text(prefix+".description", r.Description, ""),
			Severity:    n.level(prefix+".severity", r.Severity),
			Mitigation:  n.text(prefix+".mitigation", r.Mitigation, DefaultMitigation),
			EdgeCases:   n.list(prefix+".edge_cases", r.EdgeCases),
		})
	}
	out.RiskAssessment.BreakingChanges = bool(risk.BreakingChanges)
	out.RiskAssessment.RequiresMigration = bool(risk.RequiresMigration)

	out.ReviewQuestions = make([]ReviewQuestion, 0, len(raw.ReviewQuestions))
	for i, q := range raw.ReviewQuestions {
		prefix := fmt.Sprintf("review_questions[%d]", i)
		out.ReviewQuestions = append(out.ReviewQuestions, ReviewQuestion{
			Question: strings.TrimSpace(q.Question),
			Context:  n.text(prefix+".context", q.Context, ""),
			Priority: n.level(prefix+".priority", q.Priority),
		})
	}

	for i := 0; i < n.critical; i++ {
		out.Intent.Confidence *= CriticalFieldPenalty
	}
	out.Intent.Confidence = clamp(out.Intent.Confidence)

	out.Degraded = n.critical > 0
	out.DefaultedFields = n.defaulted
	return out
}

func (n *normalizer) impacts(field string, raw []rawImpact) []Impact {
	out := make([]Impact, 0, len(raw))
	for i, imp := range raw {
		prefix := fmt.Sprintf("%s[%d]", field, i)
		out = append(out, Impact{
			Area:        n.text(prefix+".area", imp.Area, ""),
			Description: n.text(prefix+".description", imp.Description, ""),
			Severity:    n.level(prefix+".severity", imp.Severity),
		})
	}
	return out
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
