package feature

// Engagement bands derived from raw survey scores.
const (
	EngagementLow    = "low"
	EngagementMedium = "medium"
	EngagementHigh   = "high"
)

// BandEngagement maps a raw 1-5 survey score onto an engagement band:
// scores of 2 or below are "low", exactly 3 is "medium", above 3 is
// "high".
func BandEngagement(score float64) string {
	switch {
	case score <= 2:
		return EngagementLow
	case score == 3:
		return EngagementMedium
	default:
		return EngagementHigh
	}
}

// BandEngagementValue is BandEngagement returning a categorical Value,
// convenient when assembling vectors.
func BandEngagementValue(score float64) Value {
	return Text(BandEngagement(score))
}
