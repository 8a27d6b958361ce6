package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tildaslashalef/semdiff/internal/failure"
	"github.com/tildaslashalef/semdiff/internal/loggy"
)

const completeAnswer = `{
  "intent": {"summary": "Add retry to payment client", "reasoning": "Calls failed under load", "confidence": 0.8},
  "impact_map": {
    "direct_impacts": [{"area": "payments", "description": "client retries", "severity": "high"}],
    "indirect_impacts": [{"area": "checkout", "description": "slower failures", "severity": "LOW"}],
    "affected_components": ["payments", "checkout"]
  },
  "risk_assessment": {
    "overall_risk": "medium",
    "risks": [{"description": "double charge", "severity": "critical", "mitigation": "idempotency keys", "edge_cases": ["timeout after commit"]}],
    "breaking_changes": false,
    "requires_migration": "true"
  },
  "review_questions": [{"question": "Are retries idempotent?", "context": "charges", "priority": "high"}]
}`

func newValidator() *Validator {
	return NewValidator(loggy.NewNoopLogger())
}

func TestValidateComplete(t *testing.T) {
	analysis, err := newValidator().Validate(completeAnswer)
	require.NoError(t, err)

	assert.False(t, analysis.Degraded)
	assert.Empty(t, analysis.DefaultedFields)

	assert.Equal(t, "Add retry to payment client", analysis.Intent.Summary)
	assert.InDelta(t, 0.8, analysis.Intent.Confidence, 1e-9)

	require.Len(t, analysis.ImpactMap.DirectImpacts, 1)
	assert.Equal(t, RiskHigh, analysis.ImpactMap.DirectImpacts[0].Severity)
	assert.Equal(t, RiskLow, analysis.ImpactMap.IndirectImpacts[0].Severity, "levels are case-insensitive")
	assert.Equal(t, []string{"payments", "checkout"}, analysis.ImpactMap.AffectedComponents)

	assert.Equal(t, RiskMedium, analysis.RiskAssessment.OverallRisk)
	require.Len(t, analysis.RiskAssessment.Risks, 1)
	assert.Equal(t, RiskCritical, analysis.RiskAssessment.Risks[0].Severity)
	assert.Equal(t, []string{"timeout after commit"}, analysis.RiskAssessment.Risks[0].EdgeCases)
	assert.False(t, analysis.RiskAssessment.BreakingChanges)
	assert.True(t, analysis.RiskAssessment.RequiresMigration)

	require.Len(t, analysis.ReviewQuestions, 1)
	assert.Equal(t, RiskHigh, analysis.ReviewQuestions[0].Priority)
}

func TestValidateLocatesJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "json fence", input: "Here is my analysis:\n```json\n" + completeAnswer + "\n```\nThanks."},
		{name: "plain fence", input: "```\n" + completeAnswer + "\n```"},
		{name: "bare", input: "  " + completeAnswer + "\n"},
		{name: "surrounded by prose", input: "Sure! " + completeAnswer + " Let me know."},
		{name: "other language fence", input: "```javascript\n" + completeAnswer + "\n```"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysis, err := newValidator().Validate(tt.input)
			require.NoError(t, err)
			assert.Equal(t, "Add retry to payment client", analysis.Intent.Summary)
			assert.False(t, analysis.Degraded)
		})
	}
}

func TestValidateParseFailures(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "prose only", input: "I could not analyze this commit."},
		{name: "array", input: `["intent", "summary"]`},
		{name: "truncated", input: `{"intent": {"summary": "x"`},
		{name: "wrong shape", input: `{"intent": "just a string"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newValidator().Validate(tt.input)
			require.Error(t, err)
			assert.True(t, failure.Is(err, failure.KindParse))
			assert.False(t, failure.Retryable(err))
		})
	}
}

func TestValidateNonCriticalDefaults(t *testing.T) {
	input := `{
	  "intent": {"summary": "Refactor"},
	  "risk_assessment": {
	    "overall_risk": "low",
	    "risks": [{"description": "none really", "severity": "catastrophic", "mitigation": ""}]
	  },
	  "review_questions": [{"question": "Why?", "context": "curious"}]
	}`

	analysis, err := newValidator().Validate(input)
	require.NoError(t, err)

	assert.False(t, analysis.Degraded)
	assert.Equal(t, DefaultConfidence, analysis.Intent.Confidence)
	assert.Equal(t, RiskMedium, analysis.RiskAssessment.Risks[0].Severity)
	assert.Equal(t, DefaultMitigation, analysis.RiskAssessment.Risks[0].Mitigation)
	assert.Equal(t, []string{}, analysis.RiskAssessment.Risks[0].EdgeCases)
	assert.Equal(t, RiskMedium, analysis.ReviewQuestions[0].Priority)
	assert.Empty(t, analysis.ImpactMap.DirectImpacts)

	assert.ElementsMatch(t, []string{
		"intent.reasoning",
		"intent.confidence",
		"impact_map",
		"risk_assessment.risks[0].severity",
		"risk_assessment.risks[0].mitigation",
		"review_questions[0].priority",
	}, analysis.DefaultedFields)
}

func TestValidateCriticalDefaults(t *testing.T) {
	t.Run("missing overall risk lowers confidence", func(t *testing.T) {
		input := `{"intent": {"summary": "Fix bug", "reasoning": "r", "confidence": 0.9},
		  "impact_map": {}, "risk_assessment": {"risks": []}}`

		analysis, err := newValidator().Validate(input)
		require.NoError(t, err)

		assert.True(t, analysis.Degraded)
		assert.Equal(t, RiskMedium, analysis.RiskAssessment.OverallRisk)
		assert.Contains(t, analysis.DefaultedFields, "risk_assessment.overall_risk")
		assert.InDelta(t, 0.45, analysis.Intent.Confidence, 1e-9)
		assert.Less(t, analysis.Intent.Confidence, 0.9)
	})

	t.Run("invalid overall risk", func(t *testing.T) {
		input := `{"intent": {"summary": "Fix bug", "reasoning": "r", "confidence": 0.6},
		  "impact_map": {}, "risk_assessment": {"overall_risk": "severe"}}`

		analysis, err := newValidator().Validate(input)
		require.NoError(t, err)
		assert.True(t, analysis.Degraded)
		assert.InDelta(t, 0.3, analysis.Intent.Confidence, 1e-9)
	})

	t.Run("missing summary and risk", func(t *testing.T) {
		analysis, err := newValidator().Validate(`{"intent": {"confidence": 1}}`)
		require.NoError(t, err)

		assert.True(t, analysis.Degraded)
		assert.Equal(t, DefaultIntentSummary, analysis.Intent.Summary)
		assert.InDelta(t, 0.25, analysis.Intent.Confidence, 1e-9)
		assert.Contains(t, analysis.DefaultedFields, "intent.summary")
		assert.Contains(t, analysis.DefaultedFields, "risk_assessment.overall_risk")
	})

	t.Run("empty object", func(t *testing.T) {
		analysis, err := newValidator().Validate(`{}`)
		require.NoError(t, err)
		assert.True(t, analysis.Degraded)
		assert.InDelta(t, DefaultConfidence*CriticalFieldPenalty*CriticalFieldPenalty, analysis.Intent.Confidence, 1e-9)
	})

	t.Run("zero confidence stays zero", func(t *testing.T) {
		input := `{"intent": {"summary": "Fix bug", "reasoning": "r", "confidence": 0},
		  "impact_map": {}, "risk_assessment": {}}`

		analysis, err := newValidator().Validate(input)
		require.NoError(t, err)
		assert.True(t, analysis.Degraded, "degradation is still flagged")
		assert.Contains(t, analysis.DefaultedFields, "risk_assessment.overall_risk")
		assert.Zero(t, analysis.Intent.Confidence, "the penalty cannot go below zero")
	})
}

func TestValidateStringLists(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		want      []string
		defaulted bool
	}{
		{name: "list", value: `["auth", "billing"]`, want: []string{"auth", "billing"}},
		{name: "bare string", value: `"auth"`, want: []string{"auth"}},
		{name: "blank string", value: `"  "`, want: []string{}},
		{name: "null", value: `null`, want: []string{}},
		{name: "number", value: `3`, want: []string{}, defaulted: true},
		{name: "object", value: `{"name": "auth"}`, want: []string{}, defaulted: true},
		{name: "mixed list", value: `["auth", 1]`, want: []string{}, defaulted: true},
	}

	for _, tt := range tests {
		t.Run("affected_components "+tt.name, func(t *testing.T) {
			input := `{"intent": {"summary": "s", "reasoning": "r", "confidence": 0.8},
			  "impact_map": {"affected_components": ` + tt.value + `},
			  "risk_assessment": {"overall_risk": "low"}}`

			analysis, err := newValidator().Validate(input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, analysis.ImpactMap.AffectedComponents)
			assert.False(t, analysis.Degraded)
			if tt.defaulted {
				assert.Contains(t, analysis.DefaultedFields, "impact_map.affected_components")
			} else {
				assert.NotContains(t, analysis.DefaultedFields, "impact_map.affected_components")
			}
		})

		t.Run("edge_cases "+tt.name, func(t *testing.T) {
			input := `{"intent": {"summary": "s", "reasoning": "r", "confidence": 0.8},
			  "impact_map": {},
			  "risk_assessment": {"overall_risk": "low", "risks": [
			    {"description": "d", "severity": "low", "mitigation": "m", "edge_cases": ` + tt.value + `}]}}`

			analysis, err := newValidator().Validate(input)
			require.NoError(t, err)
			require.Len(t, analysis.RiskAssessment.Risks, 1)
			assert.Equal(t, tt.want, analysis.RiskAssessment.Risks[0].EdgeCases)
			assert.InDelta(t, 0.8, analysis.Intent.Confidence, 1e-9)
			if tt.defaulted {
				assert.Contains(t, analysis.DefaultedFields, "risk_assessment.risks[0].edge_cases")
			} else {
				assert.NotContains(t, analysis.DefaultedFields, "risk_assessment.risks[0].edge_cases")
			}
		})
	}
}

func TestValidateConfidence(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want float64
	}{
		{name: "number", raw: `0.7`, want: 0.7},
		{name: "string", raw: `"0.7"`, want: 0.7},
		{name: "percent", raw: `"70%"`, want: 0.7},
		{name: "above range", raw: `1.4`, want: 1},
		{name: "below range", raw: `-0.2`, want: 0},
		{name: "null", raw: `null`, want: DefaultConfidence},
		{name: "garbage", raw: `"high"`, want: DefaultConfidence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := `{"intent": {"summary": "s", "reasoning": "r", "confidence": ` + tt.raw + `},
			  "impact_map": {}, "risk_assessment": {"overall_risk": "low"}}`
			analysis, err := newValidator().Validate(input)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, analysis.Intent.Confidence, 1e-9)
			assert.GreaterOrEqual(t, analysis.Intent.Confidence, 0.0)
			assert.LessOrEqual(t, analysis.Intent.Confidence, 1.0)
		})
	}
}

func TestParseRiskLevel(t *testing.T) {
	level, ok := ParseRiskLevel(" Critical ")
	assert.True(t, ok)
	assert.Equal(t, RiskCritical, level)
	assert.Equal(t, 4, level.Rank())

	_, ok = ParseRiskLevel("severe")
	assert.False(t, ok)
	assert.Zero(t, RiskLevel("severe").Rank())
}
