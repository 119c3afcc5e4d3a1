package services

import (
	"math"
	"strings"

	"gorm.io/gorm"

	"github.com/shamsucomsoft/onv-ncne-api/models"
)

// ValueCount is one bucket of a GROUP BY count.
type ValueCount struct {
	Value *string `json:"value"`
	Count int64   `json:"count"`
}

// LabelledCount is a boolean column tally with its share of a total.
type LabelledCount struct {
	Label      string  `json:"label"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

func countTrue(col string) string {
	return "COALESCE(SUM(CASE WHEN " + col + " THEN 1 ELSE 0 END), 0)"
}

// groupCount buckets q by expr, largest first.
func groupCount(q *gorm.DB, expr string, dst *[]ValueCount) error {
	return q.Select(expr + " AS value, COUNT(*) AS count").
		Group(expr).
		Order("count DESC").
		Order(expr).
		Scan(dst).Error
}

// flagCounts tallies every column in cols that is true, in one query.
func flagCounts(q *gorm.DB, alias string, cols []models.LabelledColumn) ([]int64, error) {
	exprs := make([]string, len(cols))
	for i, c := range cols {
		exprs[i] = countTrue(alias + "." + c.Column)
	}
	out := make([]int64, len(cols))
	dest := make([]interface{}, len(cols))
	for i := range out {
		dest[i] = &out[i]
	}
	if err := q.Select(strings.Join(exprs, ", ")).Row().Scan(dest...); err != nil {
		return nil, err
	}
	return out, nil
}

func percentOf(n, total int64) int64 {
	if total <= 0 {
		return 0
	}
	return int64(math.Round(float64(n) / float64(total) * 100))
}

func shareOf(n, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

// labelledCounts pairs counts with their column labels. Zero buckets are
// dropped when skipZero is set.
func labelledCounts(cols []models.LabelledColumn, counts []int64, total int64, skipZero bool) []LabelledCount {
	out := make([]LabelledCount, 0, len(cols))
	for i, c := range cols {
		if skipZero && counts[i] == 0 {
			continue
		}
		out = append(out, LabelledCount{Label: c.Label, Count: counts[i], Percentage: shareOf(counts[i], total)})
	}
	return out
}

var zoneLabels = []models.LabelledColumn{
	{Column: models.ZoneNorthWest, Label: "Northern Zone"},
	{Column: models.ZoneNorthEast, Label: "North East"},
	{Column: models.ZoneNorthCentral, Label: "Middle Belt"},
	{Column: models.ZoneSouthWest, Label: "South West"},
	{Column: models.ZoneSouthEast, Label: "South East"},
	{Column: models.ZoneSouthSouth, Label: "South South"},
}

func zoneLabel(zone string) string {
	for _, z := range zoneLabels {
		if z.Column == zone {
			return z.Label
		}
	}
	if zone == "" {
		return "Unknown"
	}
	return zone
}

var nomadismLabels = map[string]string{
	models.NomadismSettled:     "Settled",
	models.NomadismSemiSettled: "Semi-Settled",
	models.NomadismMobile:      "Mobile",
}

// engagementLevel buckets a completion rate in percent.
func engagementLevel(rate float64) string {
	switch {
	case rate >= 80:
		return "Very High"
	case rate >= 60:
		return "High"
	case rate >= 40:
		return "Moderate"
	case rate >= 20:
		return "Low"
	default:
		return "Very Low"
	}
}
