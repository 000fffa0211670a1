package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sreinvestigator/investigator/pkg/model"
)

// TestScore_ChainDepthCapsAt30 asserts chain depth contributes 6 points
// per step, capped at 30 regardless of how deep the chain goes.
func TestScore_ChainDepthCapsAt30(t *testing.T) {
	assert.Equal(t, 12, Score(Factors{EvidenceChainDepth: 2}))
	assert.Equal(t, 30, Score(Factors{EvidenceChainDepth: 5}))
	assert.Equal(t, 30, Score(Factors{EvidenceChainDepth: 50}), "chain depth contribution must cap at 30 even with a very deep chain")
}

// TestScore_CorroboratingCapsAt40 asserts corroborating-strong
// contributes 10 points per signal, capped at 40.
func TestScore_CorroboratingCapsAt40(t *testing.T) {
	assert.Equal(t, 20, Score(Factors{CorroboratingStrong: 2}))
	assert.Equal(t, 40, Score(Factors{CorroboratingStrong: 4}))
	assert.Equal(t, 40, Score(Factors{CorroboratingStrong: 100}))
}

// TestScore_ContradictingPenalizesAndClampsAtZero asserts each
// contradicting signal subtracts 25 points and the score never goes
// negative.
func TestScore_ContradictingPenalizesAndClampsAtZero(t *testing.T) {
	assert.Equal(t, 0, Score(Factors{ContradictingCount: 1}))
	assert.Equal(t, 0, Score(Factors{ContradictingCount: 10}), "score must clamp at zero, never negative")
}

// TestScore_BonusFactorsAddFixedAmounts asserts temporal correlation,
// historical pattern match, and direct evidence each add their
// documented fixed bonus.
func TestScore_BonusFactorsAddFixedAmounts(t *testing.T) {
	assert.Equal(t, 15, Score(Factors{TemporalCorrelated: true}))
	assert.Equal(t, 15, Score(Factors{HistoricalPatternMatch: true}))
	assert.Equal(t, 20, Score(Factors{DirectEvidence: true}))
	assert.Equal(t, 50, Score(Factors{TemporalCorrelated: true, HistoricalPatternMatch: true, DirectEvidence: true}))
}

// TestScore_ClampsAt100 asserts a maxed-out set of factors clamps to 100
// rather than overflowing.
func TestScore_ClampsAt100(t *testing.T) {
	got := Score(Factors{
		EvidenceChainDepth:     10,
		CorroboratingStrong:    10,
		TemporalCorrelated:     true,
		HistoricalPatternMatch: true,
		DirectEvidence:         true,
	})
	assert.Equal(t, 100, got)
}

// TestLevel_Buckets asserts the documented confidence thresholds: high
// >= 70, medium >= 40, else low.
func TestLevel_Buckets(t *testing.T) {
	cases := []struct {
		confidence int
		want       model.ConfidenceLevel
	}{
		{0, model.ConfidenceLow},
		{39, model.ConfidenceLow},
		{40, model.ConfidenceMedium},
		{69, model.ConfidenceMedium},
		{70, model.ConfidenceHigh},
		{100, model.ConfidenceHigh},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Level(tc.confidence), "confidence %d", tc.confidence)
	}
}
