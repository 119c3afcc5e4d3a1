package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shamsucomsoft/onv-ncne-api/models"
	"github.com/shamsucomsoft/onv-ncne-api/utils"
)

type seededSurvey struct {
	state, lga, community, zone string
	sex, nomadism               string
	complete                    bool
	preferred                   string
	financial, insecurity       bool
	herding                     bool
}

func seedSurveys(t *testing.T, db *gorm.DB, rows []seededSurvey) {
	t.Helper()
	svc := NewSurveyService(db)
	ctx := context.Background()
	for _, r := range rows {
		zone := r.zone
		demo := demographics("N", r.sex, r.nomadism)
		demo.OccupationHerding = r.herding
		in := SurveyInput{
			BasicInformation: &models.BasicInformation{
				State:               r.state,
				LocalGovernmentArea: r.lga,
				NameOfCommunity:     r.community,
				Zone:                &zone,
			},
			DemographicInformation: demo,
			DesiredSkills: &models.DesiredSkills{
				InterestedPoultry:    true,
				BarrierFinancialCost: r.financial,
				BarrierInsecurity:    r.insecurity,
			},
		}
		if r.preferred != "" {
			p := r.preferred
			in.DesiredSkills.MostPreferredSkill = &p
		}
		created, err := svc.Create(ctx, in, "")
		require.NoError(t, err)
		if r.complete {
			done := true
			_, err = svc.Update(ctx, created.ID, SurveyInput{IsComplete: &done}, "")
			require.NoError(t, err)
		}
	}
}

func analyticsFixture(t *testing.T) *gorm.DB {
	db := newTestDB(t)
	seedSurveys(t, db, []seededSurvey{
		{state: "Kano", lga: "Dala", community: "Rugga A", zone: models.ZoneNorthWest, sex: models.SexMale, nomadism: models.NomadismSettled, complete: true, preferred: "poultry", financial: true, herding: true},
		{state: "Kano", lga: "Dala", community: "Rugga A", zone: models.ZoneNorthWest, sex: models.SexFemale, nomadism: models.NomadismSettled, complete: true, preferred: "poultry", financial: true},
		{state: "Kano", lga: "Ungogo", community: "Rugga B", zone: models.ZoneNorthWest, sex: models.SexFemale, nomadism: models.NomadismMobile, preferred: "welding", insecurity: true},
		{state: "Borno", lga: "Jere", community: "Rugga C", zone: models.ZoneNorthEast, sex: models.SexMale, nomadism: models.NomadismSettled, complete: true, preferred: "poultry", financial: true, herding: true},
	})
	return db
}

func TestDashboardStats(t *testing.T) {
	db := analyticsFixture(t)
	svc := NewDashboardService(db)

	stats, err := svc.Stats(context.Background(), DashboardFilter{})
	require.NoError(t, err)

	o := stats.OverallStats
	assert.Equal(t, int64(4), o.TotalSurveys)
	assert.Equal(t, int64(3), o.CompletedSurveys)
	assert.Equal(t, int64(75), o.CompletionRate)
	assert.True(t, o.Estimates.IsEstimate)
	assert.Equal(t, int64(4*180), o.Estimates.TotalNomadicPopulation)
	assert.Equal(t, int64(0), o.Estimates.TotalCommunities)
	assert.Equal(t, int64(25), o.Estimates.SkillsTrainingRate)

	require.Len(t, stats.StateStats, 2)
	assert.Equal(t, "Borno", stats.StateStats[0].State)
	assert.Equal(t, "BO", stats.StateStats[0].Code)
	assert.Equal(t, "KN", stats.StateStats[1].Code)
	assert.Equal(t, int64(3), stats.StateStats[1].TotalSurveys)

	require.NotEmpty(t, stats.SkillBarriers)
	assert.Equal(t, "Financial Cost", stats.SkillBarriers[0].Barrier)
	assert.Equal(t, int64(3), stats.SkillBarriers[0].Count)
	assert.Equal(t, int64(75), stats.SkillBarriers[0].Percentage)

	var poultry *SkillInterestByGender
	for i := range stats.SkillInterestByGender {
		if stats.SkillInterestByGender[i].Skill == "Poultry" {
			poultry = &stats.SkillInterestByGender[i]
		}
	}
	require.NotNil(t, poultry)
	assert.Equal(t, int64(2), poultry.MaleCount)
	assert.Equal(t, int64(2), poultry.FemaleCount)

	require.NotEmpty(t, stats.TopSkills)
	assert.Equal(t, "Poultry Farming", stats.TopSkills[0].Skill)
	assert.Equal(t, "up", stats.TopSkills[0].Trend)
	assert.Equal(t, "down", stats.TopSkills[1].Trend)

	for _, p := range stats.SkillProficiency {
		assert.True(t, p.IsPlaceholder)
	}

	var settled NomadismType
	for _, n := range stats.NomadismTypes {
		if n.Type == "Settled" {
			settled = n
		}
	}
	assert.Equal(t, int64(75), settled.Percentage)
}

func TestDashboardFilters(t *testing.T) {
	db := analyticsFixture(t)
	svc := NewDashboardService(db)
	ctx := context.Background()

	f, err := ParseDashboardFilter("Kano", "", "", "")
	require.NoError(t, err)
	stats, err := svc.Stats(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.OverallStats.TotalSurveys)

	f, err = ParseDashboardFilter("ALL", models.ZoneNorthEast, "", "")
	require.NoError(t, err)
	stats, err = svc.Stats(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.OverallStats.TotalSurveys)

	f, err = ParseDashboardFilter("", "", "2000-01-01", "")
	require.NoError(t, err)
	stats, err = svc.Stats(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.OverallStats.TotalSurveys, "incomplete surveys have no submission date")

	_, err = ParseDashboardFilter("", "middle-earth", "", "")
	assert.Equal(t, http.StatusBadRequest, utils.StatusOf(err))
	_, err = ParseDashboardFilter("", "", "yesterday", "")
	assert.Equal(t, http.StatusBadRequest, utils.StatusOf(err))
}

func TestDashboardInsights(t *testing.T) {
	insights := buildInsights(&DashboardStats{
		OverallStats:  OverallStats{CompletionRate: 50},
		SkillBarriers: []SkillBarrier{{Barrier: "Insecurity", Count: 4, Percentage: 40}},
		TopSkills:     []TopSkill{{Skill: "Poultry Farming", Count: 3, Percentage: 60}},
		NomadismTypes: []NomadismType{{Type: "Settled", Count: 5, Percentage: 55}},
	})
	require.Len(t, insights.Insights, 3)
	assert.Equal(t, "Low Survey Completion Rate", insights.Insights[0].Title)
	assert.Equal(t, "High Impact Barrier: Insecurity", insights.Insights[1].Title)
	assert.Equal(t, "opportunity", insights.Insights[2].Category)
	assert.Len(t, insights.KeyFindings, 2)
	assert.Len(t, insights.Recommendations, 3)

	quiet := buildInsights(&DashboardStats{OverallStats: OverallStats{CompletionRate: 90}})
	assert.Empty(t, quiet.Insights)
	assert.NotNil(t, quiet.KeyFindings)
}

func TestDashboardStatesAndLite(t *testing.T) {
	db := analyticsFixture(t)
	svc := NewDashboardService(db)
	ctx := context.Background()

	states, err := svc.States(ctx, DashboardFilter{})
	require.NoError(t, err)
	assert.Equal(t, []StateOption{{State: "All States", Code: "ALL"}, {State: "Borno", Code: "BO"}, {State: "Kano", Code: "KN"}}, states)

	lite, err := svc.Lite(ctx, DashboardFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), lite.Overall.SubmissionsTotal)
	assert.Equal(t, int64(3), lite.Overall.SubmissionsCompleted)
	assert.Equal(t, int64(2), lite.Overall.StatesCovered)
	assert.Len(t, lite.Recents, 4)
	assert.Len(t, lite.Skills.DetailedInterests, len(models.SkillInterestColumns))
	assert.Equal(t, "Poultry", lite.Skills.DetailedInterests[0].Label)
	assert.Equal(t, int64(4), lite.Skills.DetailedInterests[0].Count)
	assert.Equal(t, "Herding", lite.Demographics.Occupations[0].Label)
	assert.Equal(t, int64(2), lite.Demographics.Occupations[0].Count)
	assert.NotNil(t, lite.Perceptions.SkillsImportanceForDevelopment)
}

func TestCommunitiesData(t *testing.T) {
	db := analyticsFixture(t)
	svc := NewCommunityService(db)
	ctx := context.Background()

	data, err := svc.Data(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(3), data.CommunityStats.TotalCommunities)
	assert.Equal(t, int64(2), data.CommunityStats.EngagedCommunities)
	assert.True(t, data.CommunityStats.Estimates.IsEstimate)
	assert.Equal(t, 3.2, data.CommunityStats.Estimates.AverageDistance)

	assert.Len(t, data.GeographicDistribution.Labels, 6)
	assert.Equal(t, "Northern Zone", data.GeographicDistribution.Labels[0])
	assert.Equal(t, int64(2), data.GeographicDistribution.Datasets[0].Data[0])

	// Rugga A and Rugga C are fully complete, Rugga B has nothing complete.
	assert.Equal(t, []int64{2, 0, 0, 0, 1}, data.CommunityEngagement.Datasets[0].Data)

	require.NotEmpty(t, data.Challenges)
	assert.Equal(t, "Lack of infrastructure", data.Challenges[0].Challenge)
	assert.Equal(t, int64(2), data.Challenges[0].Communities)
	assert.Equal(t, int64(67), data.Challenges[0].Percentage)

	require.Len(t, data.ZoneData, 2)
	assert.Equal(t, "North East", data.ZoneData[0].Zone)
	assert.Equal(t, "Very High", data.ZoneData[0].Engagement)
	assert.Equal(t, "Low", data.ZoneData[0].Priority)
}

func TestCommunityCreateAndList(t *testing.T) {
	db := newTestDB(t)
	svc := NewCommunityService(db)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateCommunityInput{NameOfCommunity: "X", State: "Kano", LocalGovernmentArea: "Dala", Zone: "nowhere"}, "")
	assert.Equal(t, http.StatusBadRequest, utils.StatusOf(err))

	lat, lng, bad := 12.0, 8.5, 200.0
	_, err = svc.Create(ctx, CreateCommunityInput{NameOfCommunity: "X", State: "Kano", LocalGovernmentArea: "Dala", Zone: models.ZoneNorthWest, Latitude: &lat}, "")
	assert.Equal(t, http.StatusBadRequest, utils.StatusOf(err))
	_, err = svc.Create(ctx, CreateCommunityInput{NameOfCommunity: "X", State: "Kano", LocalGovernmentArea: "Dala", Zone: models.ZoneNorthWest, Latitude: &lat, Longitude: &bad}, "")
	assert.Equal(t, http.StatusBadRequest, utils.StatusOf(err))

	c, err := svc.Create(ctx, CreateCommunityInput{NameOfCommunity: " Rugga ", State: "Kano", LocalGovernmentArea: "Dala", Zone: models.ZoneNorthWest, Latitude: &lat, Longitude: &lng}, "")
	require.NoError(t, err)
	assert.Equal(t, "Rugga", c.NameOfCommunity)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 12.0, *list[0].Latitude)
}

func TestCommunityDistanceAnalysis(t *testing.T) {
	db := newTestDB(t)
	svc := NewCommunityService(db)
	surveys := NewSurveyService(db)
	ctx := context.Background()

	data, err := svc.Data(ctx)
	require.NoError(t, err)
	assert.False(t, data.CommunityStats.Estimates.DistanceMeasured)
	assert.Equal(t, []int64{0, 0, 0, 0, 0}, data.DistanceAnalysis.Datasets[0].Data)

	lat, lng := 12.0, 8.5
	community, err := svc.Create(ctx, CreateCommunityInput{
		NameOfCommunity: "Rugga", State: "Kano", LocalGovernmentArea: "Dala",
		Zone: models.ZoneNorthWest, Latitude: &lat, Longitude: &lng,
	}, "")
	require.NoError(t, err)

	// roughly 0.45 km and 3.3 km north of the community centre
	for _, offset := range []float64{0.004, 0.03} {
		bi := basicInfo("Kano", "Dala")
		pLat, pLng := lat+offset, lng
		bi.Latitude, bi.Longitude, bi.CommunityID = &pLat, &pLng, &community.ID
		_, err := surveys.Create(ctx, SurveyInput{
			BasicInformation:       bi,
			DemographicInformation: demographics("N", models.SexMale, models.NomadismMobile),
		}, "")
		require.NoError(t, err)
	}

	data, err = svc.Data(ctx)
	require.NoError(t, err)
	assert.True(t, data.CommunityStats.Estimates.DistanceMeasured)
	assert.InDelta(t, 1.9, data.CommunityStats.Estimates.AverageDistance, 0.05)
	assert.Equal(t, []int64{50, 0, 50, 0, 0}, data.DistanceAnalysis.Datasets[0].Data)
}

func TestPublicEndpoints(t *testing.T) {
	db := analyticsFixture(t)
	svc := NewPublicService(db)
	ctx := context.Background()

	summary, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, PublicSummary{Submissions: 4, Completed: 3, States: 2, Communities: 0}, *summary)

	demo, err := svc.Demographics(ctx)
	require.NoError(t, err)
	assert.Len(t, demo.Gender, 2)
	assert.Len(t, demo.Occupations, 6)

	skills, err := svc.Skills(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, skills.MostPreferred)
	assert.Equal(t, "poultry", *skills.MostPreferred[0].Value)
	assert.Equal(t, int64(3), skills.MostPreferred[0].Count)

	barriers, err := svc.Barriers(ctx)
	require.NoError(t, err)
	require.Len(t, barriers, 2)
	assert.Equal(t, "Financial Cost", barriers[0].Label)
	assert.Equal(t, float64(75), barriers[0].Percentage)
}
