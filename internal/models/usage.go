package models

// UsageMetric names a metered activity.
type UsageMetric string

const (
	UsageGigsPosted     UsageMetric = "gigs_posted"
	UsageMessagesSent   UsageMetric = "messages_sent"
	UsageEscrowReleases UsageMetric = "escrow_releases"
)

// UsageMetrics lists every metric in display order.
var UsageMetrics = []UsageMetric{UsageGigsPosted, UsageMessagesSent, UsageEscrowReleases}

// Valid reports whether m is a known metric.
func (m UsageMetric) Valid() bool {
	for _, known := range UsageMetrics {
		if m == known {
			return true
		}
	}
	return false
}

// UsageRecord is one metered unit of activity.
type UsageRecord struct {
	ID         string
	UserID     string
	Metric     UsageMetric
	Quantity   int64
	RecordedAt int64
}
