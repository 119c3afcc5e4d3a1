package services

import (
	"context"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/shamsucomsoft/onv-ncne-api/logger"
	"github.com/shamsucomsoft/onv-ncne-api/models"
	"github.com/shamsucomsoft/onv-ncne-api/utils"
)

// Centre figures are derived from community counts with fixed ratios until
// real centre data is collected.
const (
	estimatedCentreRatio       = 0.3
	estimatedActiveCentreRatio = 0.8
	placeholderAverageDistance = 3.2
)

type CreateCommunityInput struct {
	NameOfCommunity     string   `json:"nameOfCommunity" binding:"required"`
	State               string   `json:"state" binding:"required"`
	LocalGovernmentArea string   `json:"localGovernmentArea" binding:"required"`
	Zone                string   `json:"zone" binding:"required,oneof=north-west north-east north-central south-east south-west south-south"`
	Latitude            *float64 `json:"latitude"`
	Longitude           *float64 `json:"longitude"`
}

type CommunityStats struct {
	TotalCommunities   int64           `json:"totalCommunities"`
	EngagedCommunities int64           `json:"engagedCommunities"`
	Estimates          CentreEstimates `json:"estimates"`
}

// CentreEstimates are heuristic figures, not measurements.
type CentreEstimates struct {
	IsEstimate      bool    `json:"isEstimate"`
	Basis           string  `json:"basis"`
	Centres         int64   `json:"centres"`
	ActiveCenters   int64   `json:"activeCenters"`
	AverageDistance float64 `json:"averageDistance"`
	// DistanceMeasured is set when AverageDistance comes from respondent
	// and community coordinates rather than the placeholder.
	DistanceMeasured bool `json:"distanceMeasured"`
}

type ChartDataset struct {
	Label string  `json:"label,omitempty"`
	Data  []int64 `json:"data"`
}

type Chart struct {
	Labels   []string       `json:"labels"`
	Datasets []ChartDataset `json:"datasets"`
}

type CommunityChallenge struct {
	Challenge   string `json:"challenge"`
	Percentage  int64  `json:"percentage"`
	Communities int64  `json:"communities"`
}

type ZoneData struct {
	Zone        string `json:"zone"`
	Communities int64  `json:"communities"`
	Centers     int64  `json:"centers"`
	Engagement  string `json:"engagement"`
	Priority    string `json:"priority"`
}

type CommunitiesData struct {
	CommunityStats         CommunityStats       `json:"communityStats"`
	GeographicDistribution Chart                `json:"geographicDistribution"`
	CommunityEngagement    Chart                `json:"communityEngagement"`
	DistanceAnalysis       Chart                `json:"distanceAnalysis"`
	Challenges             []CommunityChallenge `json:"challenges"`
	ZoneData               []ZoneData           `json:"zoneData"`
}

// communityChallenges reuses barrier columns under community-level labels.
var communityChallenges = []models.LabelledColumn{
	{Column: "barrier_financial_cost", Label: "Lack of infrastructure"},
	{Column: "barrier_time_constraint", Label: "Poor road access"},
	{Column: "barrier_lack_of_information", Label: "Limited funding"},
	{Column: "barrier_inaccessibility", Label: "Teacher shortage"},
	{Column: "barrier_insecurity", Label: "Cultural resistance"},
	{Column: "barrier_health_challenges", Label: "Language barriers"},
}

type CommunityService struct {
	db *gorm.DB
}

func NewCommunityService(db *gorm.DB) *CommunityService {
	return &CommunityService{db: db}
}

func (s *CommunityService) List(ctx context.Context) ([]models.Community, error) {
	var out []models.Community
	if err := s.db.WithContext(ctx).Order("name_of_community ASC").Find(&out).Error; err != nil {
		return nil, utils.Internal("Failed to list communities", err)
	}
	return out, nil
}

func (s *CommunityService) Create(ctx context.Context, in CreateCommunityInput, actorID string) (*models.Community, error) {
	if !models.OneOf(in.Zone, models.Zones) {
		return nil, utils.BadRequest("zone must be one of " + strings.Join(models.Zones, ", "))
	}
	if (in.Latitude == nil) != (in.Longitude == nil) {
		return nil, utils.BadRequest("latitude and longitude must be given together")
	}
	if in.Latitude != nil && !utils.IsLocationValid(*in.Latitude, *in.Longitude) {
		return nil, utils.BadRequest("Invalid coordinates")
	}
	c := &models.Community{
		NameOfCommunity:     strings.TrimSpace(in.NameOfCommunity),
		State:               strings.TrimSpace(in.State),
		LocalGovernmentArea: strings.TrimSpace(in.LocalGovernmentArea),
		Zone:                in.Zone,
		Latitude:            in.Latitude,
		Longitude:           in.Longitude,
	}
	if actorID != "" {
		c.CreatedBy = &actorID
	}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, utils.Internal("Failed to create community", err)
	}
	logger.L().Info("🏘️ Community created", zap.String("id", c.ID), zap.String("name", c.NameOfCommunity))
	return c, nil
}

func (s *CommunityService) surveyed(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Table("skills_survey_submissions AS s").
		Joins("LEFT JOIN basic_information bi ON bi.submission_id = s.id")
}

type zoneRow struct {
	Zone             string
	Communities      int64
	Centers          int64
	TotalSurveys     int64
	CompletedSurveys int64
}

// Data assembles the communities dashboard. Every section is an
// independent read and runs concurrently.
func (s *CommunityService) Data(ctx context.Context) (*CommunitiesData, error) {
	out := &CommunitiesData{}
	var zones []zoneRow
	var distances []float64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, err := s.stats(gctx)
		out.CommunityStats = stats
		return err
	})
	g.Go(func() error {
		return s.surveyed(gctx).
			Select(`bi.zone AS zone,
				COUNT(DISTINCT bi.name_of_community) AS communities,
				COUNT(DISTINCT CASE WHEN s.is_complete THEN bi.name_of_community END) AS centers,
				COUNT(*) AS total_surveys,
				` + countTrue("s.is_complete") + ` AS completed_surveys`).
			Where("bi.zone IS NOT NULL").
			Group("bi.zone").
			Order("bi.zone").
			Scan(&zones).Error
	})
	g.Go(func() error {
		chart, err := s.engagement(gctx)
		out.CommunityEngagement = chart
		return err
	})
	g.Go(func() error {
		challenges, err := s.challenges(gctx)
		out.Challenges = challenges
		return err
	})
	g.Go(func() error {
		var err error
		distances, err = s.respondentDistances(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		logger.L().Error("❌ Failed to aggregate communities data", zap.Error(err))
		return nil, err
	}

	out.GeographicDistribution = geographicDistribution(zones)
	out.ZoneData = zoneData(zones)
	out.DistanceAnalysis = distanceAnalysis(distances)
	if len(distances) > 0 {
		var sum float64
		for _, d := range distances {
			sum += d
		}
		out.CommunityStats.Estimates.AverageDistance = math.Round(sum/float64(len(distances))*10) / 10
		out.CommunityStats.Estimates.DistanceMeasured = true
	}
	return out, nil
}

func (s *CommunityService) stats(ctx context.Context) (CommunityStats, error) {
	var st CommunityStats
	if err := s.db.WithContext(ctx).Model(&models.BasicInformation{}).
		Where("name_of_community IS NOT NULL").
		Distinct("name_of_community").
		Count(&st.TotalCommunities).Error; err != nil {
		return st, err
	}
	if err := s.surveyed(ctx).
		Where("s.is_complete = ?", true).
		Where("bi.name_of_community IS NOT NULL").
		Distinct("bi.name_of_community").
		Count(&st.EngagedCommunities).Error; err != nil {
		return st, err
	}

	centres := int64(float64(st.TotalCommunities) * estimatedCentreRatio)
	st.Estimates = CentreEstimates{
		IsEstimate:      true,
		Basis:           "30% of surveyed communities assumed to host a centre, 80% of those active; distance is a placeholder unless measured",
		Centres:         centres,
		ActiveCenters:   int64(float64(centres) * estimatedActiveCentreRatio),
		AverageDistance: placeholderAverageDistance,
	}
	return st, nil
}

func (s *CommunityService) engagement(ctx context.Context) (Chart, error) {
	var rows []struct {
		Total     int64
		Completed int64
	}
	err := s.surveyed(ctx).
		Select("COUNT(*) AS total, " + countTrue("s.is_complete") + " AS completed").
		Where("bi.name_of_community IS NOT NULL").
		Group("bi.name_of_community").
		Scan(&rows).Error
	if err != nil {
		return Chart{}, err
	}

	labels := []string{"Very High", "High", "Moderate", "Low", "Very Low"}
	buckets := make([]int64, len(labels))
	for _, r := range rows {
		level := engagementLevel(shareOf(r.Completed, r.Total))
		for i, l := range labels {
			if l == level {
				buckets[i]++
			}
		}
	}
	return Chart{Labels: labels, Datasets: []ChartDataset{{Data: buckets}}}, nil
}

func (s *CommunityService) challenges(ctx context.Context) ([]CommunityChallenge, error) {
	var total int64
	if err := s.surveyed(ctx).
		Where("bi.name_of_community IS NOT NULL").
		Distinct("bi.name_of_community").
		Count(&total).Error; err != nil {
		return nil, err
	}
	if total == 0 {
		return []CommunityChallenge{}, nil
	}

	exprs := make([]string, len(communityChallenges))
	for i, c := range communityChallenges {
		exprs[i] = "COUNT(DISTINCT CASE WHEN ds." + c.Column + " THEN bi.name_of_community END)"
	}
	counts := make([]int64, len(communityChallenges))
	dest := make([]interface{}, len(counts))
	for i := range counts {
		dest[i] = &counts[i]
	}
	err := s.surveyed(ctx).
		Joins("LEFT JOIN desired_skills ds ON ds.submission_id = s.id").
		Where("bi.name_of_community IS NOT NULL").
		Select(strings.Join(exprs, ", ")).
		Row().Scan(dest...)
	if err != nil {
		return nil, err
	}

	out := []CommunityChallenge{}
	for i, c := range communityChallenges {
		if counts[i] == 0 {
			continue
		}
		out = append(out, CommunityChallenge{Challenge: c.Label, Percentage: percentOf(counts[i], total), Communities: counts[i]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Percentage > out[j].Percentage })
	return out, nil
}

func geographicDistribution(rows []zoneRow) Chart {
	chart := Chart{Datasets: []ChartDataset{{Label: "Communities"}, {Label: "ANFE Centers"}}}
	for _, z := range zoneLabels {
		chart.Labels = append(chart.Labels, z.Label)
		var communities, centres int64
		for _, r := range rows {
			if r.Zone == z.Column {
				communities, centres = r.Communities, r.Centers
			}
		}
		chart.Datasets[0].Data = append(chart.Datasets[0].Data, communities)
		chart.Datasets[1].Data = append(chart.Datasets[1].Data, centres)
	}
	return chart
}

func zoneData(rows []zoneRow) []ZoneData {
	out := make([]ZoneData, 0, len(rows))
	for _, r := range rows {
		var priority string
		switch {
		case r.Communities > 2000:
			priority = "Critical"
		case r.Communities > 1000:
			priority = "High"
		case r.Communities > 500:
			priority = "Moderate"
		default:
			priority = "Low"
		}
		out = append(out, ZoneData{
			Zone:        zoneLabel(r.Zone),
			Communities: r.Communities,
			Centers:     r.Centers,
			Engagement:  engagementLevel(shareOf(r.CompletedSurveys, r.TotalSurveys)),
			Priority:    priority,
		})
	}
	return out
}

// respondentDistances returns, in km, how far each located respondent was
// surveyed from the centre of their linked community.
func (s *CommunityService) respondentDistances(ctx context.Context) ([]float64, error) {
	var rows []struct {
		Lat, Lng, CommunityLat, CommunityLng float64
	}
	err := s.db.WithContext(ctx).Table("basic_information AS bi").
		Joins("JOIN communities c ON c.id = bi.community_id").
		Select("bi.latitude AS lat, bi.longitude AS lng, c.latitude AS community_lat, c.longitude AS community_lng").
		Where("bi.latitude IS NOT NULL AND bi.longitude IS NOT NULL").
		Where("c.latitude IS NOT NULL AND c.longitude IS NOT NULL").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, len(rows))
	for _, r := range rows {
		if !utils.IsLocationValid(r.Lat, r.Lng) || !utils.IsLocationValid(r.CommunityLat, r.CommunityLng) {
			continue
		}
		out = append(out, utils.HaversineDistance(r.Lat, r.Lng, r.CommunityLat, r.CommunityLng))
	}
	return out, nil
}

// distanceAnalysis buckets distances into a percentage histogram. With no
// measurements every bucket is zero.
func distanceAnalysis(distances []float64) Chart {
	counts := make([]int64, len(utils.DistanceBands)+1)
	for _, d := range distances {
		counts[utils.DistanceBucket(d)]++
	}
	total := int64(len(distances))
	data := make([]int64, len(counts))
	for i, n := range counts {
		data[i] = percentOf(n, total)
	}
	return Chart{
		Labels:   []string{"Less than 1km", "1-2km", "2-5km", "5-10km", "More than 10km"},
		Datasets: []ChartDataset{{Label: "Percentage of Communities", Data: data}},
	}
}
