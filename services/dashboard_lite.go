package services

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shamsucomsoft/onv-ncne-api/logger"
	"github.com/shamsucomsoft/onv-ncne-api/models"
)

var occupationColumns = []models.LabelledColumn{
	{Column: "occupation_herding", Label: "Herding"},
	{Column: "occupation_farming", Label: "Farming"},
	{Column: "occupation_fishing", Label: "Fishing"},
	{Column: "occupation_trading", Label: "Trading"},
	{Column: "occupation_artisan", Label: "Artisan"},
	{Column: "occupation_others", Label: "Others"},
}

type LiteOverall struct {
	SubmissionsTotal       int64 `json:"submissionsTotal"`
	SubmissionsCompleted   int64 `json:"submissionsCompleted"`
	UsersTotal             int64 `json:"usersTotal"`
	RolesTotal             int64 `json:"rolesTotal"`
	StatesCovered          int64 `json:"statesCovered"`
	CommunitiesCovered     int64 `json:"communitiesCovered"`
	GeoTaggedSubmissions   int64 `json:"geoTaggedSubmissions"`
	BiometricCapturesTotal int64 `json:"biometricCapturesTotal"`
	PhoneNumbersCollected  int64 `json:"phoneNumbersCollected"`
	EmailsCollected        int64 `json:"emailsCollected"`
}

type StateBreakdown struct {
	State       *string `json:"state"`
	Zone        *string `json:"zone"`
	Submissions int64   `json:"submissions"`
	Completed   int64   `json:"completed"`
}

type LiteDemographics struct {
	Gender      []ValueCount    `json:"gender"`
	AgeRange    []ValueCount    `json:"ageRange"`
	Nomadism    []ValueCount    `json:"nomadism"`
	Education   []ValueCount    `json:"education"`
	Occupations []LabelledCount `json:"occupations"`
}

type LiteSkills struct {
	MostPreferred                []ValueCount    `json:"mostPreferred"`
	DetailedInterests            []LabelledCount `json:"detailedInterests"`
	DetailedBarriers             []LabelledCount `json:"detailedBarriers"`
	WantTraining                 []ValueCount    `json:"wantTraining"`
	LearningMethod               []ValueCount    `json:"learningMethod"`
	AvailableResources           []ValueCount    `json:"availableResources"`
	PreferredLearningTime        []ValueCount    `json:"preferredLearningTime"`
	HasCurrentSkills             []ValueCount    `json:"hasCurrentSkills"`
	ConfidenceLevels             []ValueCount    `json:"confidenceLevels"`
	SkillsRelevance              []ValueCount    `json:"skillsRelevance"`
	AvailableForExternalTraining []ValueCount    `json:"availableForExternalTraining"`
	ExternalTrainingTimeline     int64           `json:"externalTrainingTimeline"`
}

type LitePerceptions struct {
	SkillsImportanceForDevelopment      []ValueCount `json:"skillsImportanceForDevelopment"`
	CommunitySkillsSupportLevel         []ValueCount `json:"communitySkillsSupportLevel"`
	SkillsEffectiveForFinancialSecurity []ValueCount `json:"skillsEffectiveForFinancialSecurity"`
	ImprovementSuggestions              int64        `json:"improvementSuggestions"`
}

type RecentSubmission struct {
	ID          string     `json:"id"`
	State       *string    `json:"state"`
	Community   *string    `json:"community"`
	SubmittedAt *time.Time `json:"submittedAt"`
}

type DashboardLite struct {
	Overall        LiteOverall        `json:"overall"`
	StateBreakdown []StateBreakdown   `json:"stateBreakdown"`
	Demographics   LiteDemographics   `json:"demographics"`
	Skills         LiteSkills         `json:"skills"`
	Perceptions    LitePerceptions    `json:"perceptions"`
	Recents        []RecentSubmission `json:"recents"`
}

// Lite returns the compact dashboard. Each grouping is one query and all of
// them run concurrently.
func (s *DashboardService) Lite(ctx context.Context, f DashboardFilter) (*DashboardLite, error) {
	out := &DashboardLite{}
	g, gctx := errgroup.WithContext(ctx)

	group := func(dst *[]ValueCount, expr string, joins ...string) {
		g.Go(func() error {
			*dst = []ValueCount{}
			return groupCount(s.scoped(gctx, f, joins...), expr, dst)
		})
	}
	count := func(dst *int64, where string, joins ...string) {
		g.Go(func() error {
			return s.scoped(gctx, f, joins...).Where(where).Count(dst).Error
		})
	}

	g.Go(func() error { return s.liteOverall(gctx, f, &out.Overall) })
	g.Go(func() error {
		out.StateBreakdown = []StateBreakdown{}
		return s.scoped(gctx, f).
			Select("bi.state AS state, bi.zone AS zone, COUNT(*) AS submissions, " + countTrue("s.is_complete") + " AS completed").
			Group("bi.state, bi.zone").
			Order("submissions DESC").
			Scan(&out.StateBreakdown).Error
	})

	d := &out.Demographics
	group(&d.Gender, "di.sex", joinDemographic)
	group(&d.AgeRange, "di.age_range", joinDemographic)
	group(&d.Nomadism, "di.type_of_nomadism", joinDemographic)
	group(&d.Education, "di.level_of_education", joinDemographic)
	g.Go(func() error {
		var total int64
		if err := s.scoped(gctx, f).Count(&total).Error; err != nil {
			return err
		}
		counts, err := flagCounts(s.scoped(gctx, f, joinDemographic), "di", occupationColumns)
		if err != nil {
			return err
		}
		d.Occupations = labelledCounts(occupationColumns, counts, total, false)
		return nil
	})

	sk := &out.Skills
	g.Go(func() error {
		sk.MostPreferred = []ValueCount{}
		q := s.scoped(gctx, f, joinDesired).Limit(10)
		return groupCount(q, "ds.most_preferred_skill", &sk.MostPreferred)
	})
	g.Go(func() (err error) {
		sk.DetailedInterests, err = s.detailedFlags(gctx, f, models.SkillInterestColumns)
		return err
	})
	g.Go(func() (err error) {
		sk.DetailedBarriers, err = s.detailedFlags(gctx, f, models.BarrierColumns)
		return err
	})
	group(&sk.WantTraining, "sn.want_training", joinNeed)
	group(&sk.LearningMethod, "ds.learning_method", joinDesired)
	group(&sk.AvailableResources, "ds.available_resources", joinDesired)
	group(&sk.PreferredLearningTime, "ds.preferred_learning_time", joinDesired)
	group(&sk.HasCurrentSkills, "cs.has_skills", joinCurrent)
	group(&sk.ConfidenceLevels, "cs.confidence_level", joinCurrent)
	group(&sk.SkillsRelevance, "sn.skills_relevance", joinNeed)
	group(&sk.AvailableForExternalTraining, "ds.available_for_external_training", joinDesired)
	count(&sk.ExternalTrainingTimeline, "ds.external_training_timeline IS NOT NULL", joinDesired)

	p := &out.Perceptions
	group(&p.SkillsImportanceForDevelopment, "ps.skills_importance_for_development", joinPerception)
	group(&p.CommunitySkillsSupportLevel, "ps.community_skills_support_level", joinPerception)
	group(&p.SkillsEffectiveForFinancialSecurity, "ps.skills_effective_for_financial_security", joinPerception)
	count(&p.ImprovementSuggestions, "ps.suggestions_for_improvement IS NOT NULL", joinPerception)

	g.Go(func() error {
		out.Recents = []RecentSubmission{}
		return s.scoped(gctx, f).
			Select("s.id AS id, bi.state AS state, bi.name_of_community AS community, s.submitted_at AS submitted_at").
			Order("s.submitted_at DESC").
			Order("s.created_at DESC").
			Limit(5).
			Scan(&out.Recents).Error
	})

	if err := g.Wait(); err != nil {
		logger.L().Error("❌ Failed to compute lite dashboard", zap.Error(err))
		return nil, err
	}
	return out, nil
}

func (s *DashboardService) liteOverall(ctx context.Context, f DashboardFilter, o *LiteOverall) error {
	db := s.db.WithContext(ctx)
	if err := s.scoped(ctx, f).Select("COUNT(*), "+countTrue("s.is_complete")).Row().
		Scan(&o.SubmissionsTotal, &o.SubmissionsCompleted); err != nil {
		return err
	}
	if err := db.Model(&models.User{}).Count(&o.UsersTotal).Error; err != nil {
		return err
	}
	if err := db.Model(&models.Role{}).Count(&o.RolesTotal).Error; err != nil {
		return err
	}
	if err := s.scoped(ctx, f).Where("bi.state IS NOT NULL").Distinct("bi.state").Count(&o.StatesCovered).Error; err != nil {
		return err
	}
	if err := db.Model(&models.Community{}).Count(&o.CommunitiesCovered).Error; err != nil {
		return err
	}
	if err := s.scoped(ctx, f).Where("bi.latitude IS NOT NULL AND bi.longitude IS NOT NULL").Count(&o.GeoTaggedSubmissions).Error; err != nil {
		return err
	}
	return s.scoped(ctx, f, joinDemographic).
		Select(countTrue("di.facial_capture_file_path IS NOT NULL OR di.thumb_print_file_path IS NOT NULL")+", "+
			countTrue("di.phone_number IS NOT NULL AND di.phone_number <> ''")+", "+
			countTrue("di.email IS NOT NULL AND di.email <> ''")).
		Row().
		Scan(&o.BiometricCapturesTotal, &o.PhoneNumbersCollected, &o.EmailsCollected)
}

func (s *DashboardService) detailedFlags(ctx context.Context, f DashboardFilter, cols []models.LabelledColumn) ([]LabelledCount, error) {
	var total int64
	if err := s.scoped(ctx, f).Count(&total).Error; err != nil {
		return nil, err
	}
	counts, err := flagCounts(s.scoped(ctx, f, joinDesired), "ds", cols)
	if err != nil {
		return nil, err
	}
	out := labelledCounts(cols, counts, total, false)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out, nil
}
