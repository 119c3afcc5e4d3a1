package services

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/shamsucomsoft/onv-ncne-api/models"
)

type PublicSummary struct {
	Submissions int64 `json:"submissions"`
	Completed   int64 `json:"completed"`
	States      int64 `json:"states"`
	Communities int64 `json:"communities"`
}

type PublicDemographics struct {
	Gender      []ValueCount    `json:"gender"`
	AgeRanges   []ValueCount    `json:"ageRanges"`
	Nomadism    []ValueCount    `json:"nomadism"`
	Education   []ValueCount    `json:"education"`
	Occupations []LabelledCount `json:"occupations"`
}

type PublicSkills struct {
	MostPreferred    []ValueCount `json:"mostPreferred"`
	ConfidenceLevels []ValueCount `json:"confidenceLevels"`
	LearningMethod   []ValueCount `json:"learningMethod"`
}

// PublicService serves unauthenticated headline figures over all surveys.
type PublicService struct {
	db *gorm.DB
}

func NewPublicService(db *gorm.DB) *PublicService {
	return &PublicService{db: db}
}

func (s *PublicService) Summary(ctx context.Context) (*PublicSummary, error) {
	out := &PublicSummary{}
	g, gctx := errgroup.WithContext(ctx)
	db := s.db.WithContext(gctx)

	g.Go(func() error { return db.Model(&models.Submission{}).Count(&out.Submissions).Error })
	g.Go(func() error {
		return db.Model(&models.Submission{}).Where("is_complete = ?", true).Count(&out.Completed).Error
	})
	g.Go(func() error {
		return db.Model(&models.BasicInformation{}).Distinct("state").Count(&out.States).Error
	})
	g.Go(func() error { return db.Model(&models.Community{}).Count(&out.Communities).Error })

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PublicService) Demographics(ctx context.Context) (*PublicDemographics, error) {
	out := &PublicDemographics{}
	g, gctx := errgroup.WithContext(ctx)
	table := func() *gorm.DB { return s.db.WithContext(gctx).Table("demographic_information AS di") }

	for dst, expr := range map[*[]ValueCount]string{
		&out.Gender:    "di.sex",
		&out.AgeRanges: "di.age_range",
		&out.Nomadism:  "di.type_of_nomadism",
		&out.Education: "di.level_of_education",
	} {
		dst, expr := dst, expr
		g.Go(func() error {
			*dst = []ValueCount{}
			return groupCount(table(), expr, dst)
		})
	}
	g.Go(func() error {
		var total int64
		if err := table().Count(&total).Error; err != nil {
			return err
		}
		counts, err := flagCounts(table(), "di", occupationColumns)
		if err != nil {
			return err
		}
		out.Occupations = labelledCounts(occupationColumns, counts, total, false)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PublicService) Skills(ctx context.Context) (*PublicSkills, error) {
	out := &PublicSkills{MostPreferred: []ValueCount{}, ConfidenceLevels: []ValueCount{}, LearningMethod: []ValueCount{}}
	g, gctx := errgroup.WithContext(ctx)
	db := func() *gorm.DB { return s.db.WithContext(gctx) }

	g.Go(func() error {
		return groupCount(db().Table("desired_skills AS ds").Limit(10), "ds.most_preferred_skill", &out.MostPreferred)
	})
	g.Go(func() error {
		return groupCount(db().Table("current_skills AS cs"), "cs.confidence_level", &out.ConfidenceLevels)
	})
	g.Go(func() error {
		return groupCount(db().Table("desired_skills AS ds"), "ds.learning_method", &out.LearningMethod)
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Barriers lists every reported barrier with its share of all submissions,
// most common first.
func (s *PublicService) Barriers(ctx context.Context) ([]LabelledCount, error) {
	db := s.db.WithContext(ctx)
	var total int64
	if err := db.Model(&models.Submission{}).Count(&total).Error; err != nil {
		return nil, err
	}
	counts, err := flagCounts(
		db.Table("skills_survey_submissions AS s").Joins(joinDesired),
		"ds", models.BarrierColumns)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		total = 1
	}

	out := labelledCounts(models.BarrierColumns, counts, total, true)
	for i := range out {
		out[i].Percentage = float64(percentOf(out[i].Count, total))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out, nil
}
