package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shamsucomsoft/onv-ncne-api/logger"
	"github.com/shamsucomsoft/onv-ncne-api/models"
	"github.com/shamsucomsoft/onv-ncne-api/utils"
)

// SurveyInput carries a whole survey. Only demographics are mandatory on
// create; on update every supplied section replaces the stored one.
type SurveyInput struct {
	IsComplete             *bool                          `json:"isComplete"`
	BasicInformation       *models.BasicInformation       `json:"basicInformation"`
	DemographicInformation *models.DemographicInformation `json:"demographicInformation"`
	CurrentSkills          *models.CurrentSkills          `json:"currentSkills"`
	SkillsNeed             *models.SkillsNeed             `json:"skillsNeed"`
	DesiredSkills          *models.DesiredSkills          `json:"desiredSkills"`
	PerceptionOfSkills     *models.PerceptionOfSkills     `json:"perceptionOfSkills"`
}

type SurveyFilter struct {
	State          string
	LGA            string
	TypeOfNomadism string
	Sex            string
}

type SexCount struct {
	Sex   string `json:"sex"`
	Count int64  `json:"count"`
}

type AgeRangeCount struct {
	AgeRange string `json:"ageRange"`
	Count    int64  `json:"count"`
}

type NomadismCount struct {
	TypeOfNomadism string `json:"typeOfNomadism"`
	Count          int64  `json:"count"`
}

type PreferredSkillCount struct {
	MostPreferredSkill *string `json:"mostPreferredSkill"`
	Count              int64   `json:"count"`
}

type SurveyStats struct {
	TotalSurveys         int64                 `json:"totalSurveys"`
	CompletedSurveys     int64                 `json:"completedSurveys"`
	GenderDistribution   []SexCount            `json:"genderDistribution"`
	AgeDistribution      []AgeRangeCount       `json:"ageDistribution"`
	NomadismDistribution []NomadismCount       `json:"nomadismDistribution"`
	SkillInterests       []PreferredSkillCount `json:"skillInterests"`
}

// sectionRecord is implemented by every submission section model.
type sectionRecord interface {
	Base() *models.SectionBase
	TableName() string
}

type SurveyService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewSurveyService(db *gorm.DB) *SurveyService {
	return &SurveyService{db: db, now: time.Now}
}

func (in *SurveyInput) sections() []sectionRecord {
	var out []sectionRecord
	if in.BasicInformation != nil {
		out = append(out, in.BasicInformation)
	}
	if in.DemographicInformation != nil {
		out = append(out, in.DemographicInformation)
	}
	if in.CurrentSkills != nil {
		out = append(out, in.CurrentSkills)
	}
	if in.SkillsNeed != nil {
		out = append(out, in.SkillsNeed)
	}
	if in.DesiredSkills != nil {
		out = append(out, in.DesiredSkills)
	}
	if in.PerceptionOfSkills != nil {
		out = append(out, in.PerceptionOfSkills)
	}
	return out
}

func validateSurvey(in *SurveyInput, creating bool) error {
	if d := in.DemographicInformation; d != nil {
		switch {
		case d.FirstName == "" || d.LastName == "":
			return utils.BadRequest("firstName and lastName are required")
		case !models.OneOf(d.Sex, []string{models.SexMale, models.SexFemale}):
			return utils.BadRequest("sex must be one of male, female")
		case !models.OneOf(d.AgeRange, models.AgeRanges):
			return utils.BadRequest("ageRange must be one of " + strings.Join(models.AgeRanges, ", "))
		case !models.OneOf(d.LevelOfEducation, models.EducationLevels):
			return utils.BadRequest("levelOfEducation must be one of " + strings.Join(models.EducationLevels, ", "))
		case !models.OneOf(d.TypeOfNomadism, models.NomadismTypes):
			return utils.BadRequest("typeOfNomadism must be one of " + strings.Join(models.NomadismTypes, ", "))
		}
	} else if creating {
		return utils.BadRequest("demographicInformation is required")
	}

	if b := in.BasicInformation; b != nil {
		if b.State == "" || b.LocalGovernmentArea == "" || b.NameOfCommunity == "" {
			return utils.BadRequest("state, localGovernmentArea and nameOfCommunity are required")
		}
		if b.Zone != nil && !models.OneOf(*b.Zone, models.Zones) {
			return utils.BadRequest("zone must be one of " + strings.Join(models.Zones, ", "))
		}
	}
	if c := in.CurrentSkills; c != nil && c.HasSkills == "" {
		return utils.BadRequest("hasSkills is required")
	}
	if n := in.SkillsNeed; n != nil && n.WantTraining == "" {
		return utils.BadRequest("wantTraining is required")
	}
	if p := in.PerceptionOfSkills; p != nil {
		if p.SkillsImportanceForDevelopment == "" || p.CommunitySkillsSupportLevel == "" || p.SkillsEffectiveForFinancialSecurity == "" {
			return utils.BadRequest("all three perception ratings are required")
		}
	}
	if d := in.DesiredSkills; d != nil {
		if d.LearningMethod != nil && !models.OneOf(*d.LearningMethod, models.LearningMethods) {
			return utils.BadRequest("learningMethod must be one of " + strings.Join(models.LearningMethods, ", "))
		}
		if d.AvailableResources != nil && !models.OneOf(*d.AvailableResources, models.AvailableResources) {
			return utils.BadRequest("availableResources must be one of " + strings.Join(models.AvailableResources, ", "))
		}
		if d.PreferredLearningTime != nil && !models.OneOf(*d.PreferredLearningTime, models.LearningTimes) {
			return utils.BadRequest("preferredLearningTime must be one of " + strings.Join(models.LearningTimes, ", "))
		}
	}
	return nil
}

// Create stores the submission and all supplied sections atomically.
func (s *SurveyService) Create(ctx context.Context, in SurveyInput, actorID string) (*models.Submission, error) {
	if err := validateSurvey(&in, true); err != nil {
		return nil, err
	}

	submission := &models.Submission{IsComplete: false}
	if actorID != "" {
		submission.SubmittedBy = &actorID
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(submission).Error; err != nil {
			return err
		}
		for _, section := range in.sections() {
			b := section.Base()
			b.ID = ""
			b.SubmissionID = submission.ID
			if actorID != "" {
				b.EnteredBy = &actorID
			}
			s.stampSurveyDate(section)
			if err := tx.Omit(clause.Associations).Create(section).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.L().Error("❌ Failed to create survey", zap.Error(err))
		return nil, utils.BadRequest("Failed to create survey: " + err.Error())
	}

	logger.L().Info("✅ Survey created", zap.String("id", submission.ID), zap.String("submittedBy", actorID))
	return s.Get(ctx, submission.ID)
}

func (s *SurveyService) stampSurveyDate(section sectionRecord) {
	if bi, ok := section.(*models.BasicInformation); ok && bi.DateOfSurvey.IsZero() {
		bi.DateOfSurvey = s.now()
	}
}

func (s *SurveyService) filtered(ctx context.Context, f SurveyFilter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&models.Submission{}).
		Joins("LEFT JOIN basic_information bi ON bi.submission_id = skills_survey_submissions.id").
		Joins("LEFT JOIN demographic_information di ON di.submission_id = skills_survey_submissions.id")
	if f.State != "" {
		q = q.Where("LOWER(bi.state) LIKE ?", "%"+strings.ToLower(f.State)+"%")
	}
	if f.LGA != "" {
		q = q.Where("LOWER(bi.local_government_area) LIKE ?", "%"+strings.ToLower(f.LGA)+"%")
	}
	if f.TypeOfNomadism != "" {
		q = q.Where("di.type_of_nomadism = ?", f.TypeOfNomadism)
	}
	if f.Sex != "" {
		q = q.Where("di.sex = ?", f.Sex)
	}
	return q
}

// List returns submissions newest first with every section attached.
func (s *SurveyService) List(ctx context.Context, f SurveyFilter, page utils.Pagination) (*Paginated, error) {
	var total int64
	if err := s.filtered(ctx, f).Distinct("skills_survey_submissions.id").Count(&total).Error; err != nil {
		return nil, utils.Internal("Failed to count surveys", err)
	}

	q := s.filtered(ctx, f).Select("skills_survey_submissions.*").
		Order("skills_survey_submissions.created_at DESC").
		Scopes(page.Scope).
		Preload("Submitter")
	for _, p := range models.SectionPreloads {
		q = q.Preload(p)
	}

	var surveys []models.Submission
	if err := q.Find(&surveys).Error; err != nil {
		return nil, utils.Internal("Failed to list surveys", err)
	}
	return &Paginated{Data: surveys, Meta: page.Meta(total)}, nil
}

func (s *SurveyService) Get(ctx context.Context, id string) (*models.Submission, error) {
	q := s.db.WithContext(ctx).Preload("Submitter")
	for _, p := range models.SectionPreloads {
		q = q.Preload(p)
	}
	var survey models.Submission
	if err := q.First(&survey, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFound("Survey not found")
		}
		return nil, utils.Internal("Failed to load survey", err)
	}
	return &survey, nil
}

func (s *SurveyService) exists(ctx context.Context, id string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Submission{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}

// Update replaces each supplied section, inserting those the survey lacks.
func (s *SurveyService) Update(ctx context.Context, id string, in SurveyInput, actorID string) (*models.Submission, error) {
	found, err := s.exists(ctx, id)
	if err != nil {
		return nil, utils.Internal("Failed to load survey", err)
	}
	if !found {
		return nil, utils.NotFound("Survey not found")
	}
	if err := validateSurvey(&in, false); err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.IsComplete != nil {
			updates := map[string]interface{}{"is_complete": *in.IsComplete, "submitted_at": nil}
			if *in.IsComplete {
				updates["submitted_at"] = s.now()
			}
			if err := tx.Model(&models.Submission{ID: id}).Updates(updates).Error; err != nil {
				return err
			}
		}
		for _, section := range in.sections() {
			if err := s.saveSection(tx, id, actorID, section); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.L().Error("❌ Failed to update survey", zap.String("id", id), zap.Error(err))
		return nil, utils.BadRequest("Failed to update survey: " + err.Error())
	}
	return s.Get(ctx, id)
}

func (s *SurveyService) saveSection(tx *gorm.DB, submissionID, actorID string, section sectionRecord) error {
	var ids []string
	if err := tx.Table(section.TableName()).Where("submission_id = ?", submissionID).Limit(1).Pluck("id", &ids).Error; err != nil {
		return err
	}

	b := section.Base()
	b.SubmissionID = submissionID
	s.stampSurveyDate(section)
	if len(ids) > 0 {
		b.ID = ids[0]
		return tx.Model(section).
			Select("*").
			Omit("id", "submission_id", "entered_by", "created_at", clause.Associations).
			Updates(section).Error
	}

	b.ID = ""
	if actorID != "" {
		b.EnteredBy = &actorID
	}
	return tx.Omit(clause.Associations).Create(section).Error
}

// Delete removes the submission together with its sections.
func (s *SurveyService) Delete(ctx context.Context, id string) error {
	found, err := s.exists(ctx, id)
	if err != nil {
		return utils.Internal("Failed to load survey", err)
	}
	if !found {
		return utils.NotFound("Survey not found")
	}

	sections := []interface{}{
		&models.BasicInformation{}, &models.DemographicInformation{}, &models.CurrentSkills{},
		&models.SkillsNeed{}, &models.DesiredSkills{}, &models.PerceptionOfSkills{},
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range sections {
			if err := tx.Where("submission_id = ?", id).Delete(m).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Submission{}, "id = ?", id).Error
	})
	if err != nil {
		return utils.Internal("Failed to delete survey", err)
	}
	logger.L().Info("🗑️ Survey deleted", zap.String("id", id))
	return nil
}

// Stats summarises all submissions. The queries are independent and run
// concurrently.
func (s *SurveyService) Stats(ctx context.Context) (*SurveyStats, error) {
	stats := &SurveyStats{}
	g, gctx := errgroup.WithContext(ctx)
	db := s.db.WithContext(gctx)

	g.Go(func() error {
		return db.Model(&models.Submission{}).Count(&stats.TotalSurveys).Error
	})
	g.Go(func() error {
		return db.Model(&models.Submission{}).Where("is_complete = ?", true).Count(&stats.CompletedSurveys).Error
	})
	g.Go(func() error {
		return db.Model(&models.DemographicInformation{}).
			Select("sex, COUNT(*) AS count").Group("sex").Scan(&stats.GenderDistribution).Error
	})
	g.Go(func() error {
		return db.Model(&models.DemographicInformation{}).
			Select("age_range, COUNT(*) AS count").Group("age_range").Scan(&stats.AgeDistribution).Error
	})
	g.Go(func() error {
		return db.Model(&models.DemographicInformation{}).
			Select("type_of_nomadism, COUNT(*) AS count").Group("type_of_nomadism").Scan(&stats.NomadismDistribution).Error
	})
	g.Go(func() error {
		return db.Model(&models.DesiredSkills{}).
			Select("most_preferred_skill, COUNT(*) AS count").
			Where("most_preferred_skill IS NOT NULL").
			Group("most_preferred_skill").Scan(&stats.SkillInterests).Error
	})

	if err := g.Wait(); err != nil {
		return nil, utils.Internal("Failed to compute survey statistics", err)
	}
	return stats, nil
}
