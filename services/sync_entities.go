package services

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/shamsucomsoft/onv-ncne-api/logger"
	"github.com/shamsucomsoft/onv-ncne-api/models"
	"github.com/shamsucomsoft/onv-ncne-api/storage"
)

// Sync table names as sent by clients.
const (
	TableCommunities            = "communities"
	TableSubmissions            = "skills_survey_submissions"
	TableBasicInformation       = "basic_information"
	TableDemographicInformation = "demographic_information"
	TableCurrentSkills          = "current_skills"
	TableSkillsNeed             = "skills_need"
	TableDesiredSkills          = "desired_skills"
	TablePerceptionOfSkills     = "perception_of_skills"
)

// bindInput is what an entity binder gets besides the record itself.
type bindInput struct {
	actorID    string
	isUpdate   bool
	attachment *Attachment
}

// syncEntity describes one table reachable through the sync endpoint.
type syncEntity struct {
	label    string
	newModel func() interface{}
	bind     func(ctx context.Context, s *SyncService, b *recordBinder, in bindInput) interface{}
}

func (s *SyncService) entities() map[string]syncEntity {
	return map[string]syncEntity{
		TableCommunities: {
			label:    "Community",
			newModel: func() interface{} { return &models.Community{} },
			bind:     bindCommunity,
		},
		TableSubmissions: {
			label:    "Submission",
			newModel: func() interface{} { return &models.Submission{} },
			bind:     bindSubmission,
		},
		TableBasicInformation: {
			label:    "Basic information",
			newModel: func() interface{} { return &models.BasicInformation{} },
			bind:     bindBasicInformation,
		},
		TableDemographicInformation: {
			label:    "Demographic information",
			newModel: func() interface{} { return &models.DemographicInformation{} },
			bind:     bindDemographicInformation,
		},
		TableCurrentSkills: {
			label:    "Current skills",
			newModel: func() interface{} { return &models.CurrentSkills{} },
			bind:     bindCurrentSkills,
		},
		TableSkillsNeed: {
			label:    "Skills need",
			newModel: func() interface{} { return &models.SkillsNeed{} },
			bind:     bindSkillsNeed,
		},
		TableDesiredSkills: {
			label:    "Desired skills",
			newModel: func() interface{} { return &models.DesiredSkills{} },
			bind:     bindDesiredSkills,
		},
		TablePerceptionOfSkills: {
			label:    "Perception of skills",
			newModel: func() interface{} { return &models.PerceptionOfSkills{} },
			bind:     bindPerceptionOfSkills,
		},
	}
}

func bindSection(b *recordBinder, base *models.SectionBase, in bindInput) {
	b.str("id", &base.ID)
	b.str("submission_id", &base.SubmissionID)
	b.strOr("entered_by", &base.EnteredBy, in.actorID)
	if !in.isUpdate {
		b.createdAt(&base.CreatedAt)
		b.require("submission_id")
	}
}

func bindCommunity(_ context.Context, _ *SyncService, b *recordBinder, in bindInput) interface{} {
	c := &models.Community{}
	b.str("id", &c.ID)
	b.str("state", &c.State)
	b.str("zone", &c.Zone)
	b.str("local_government_area", &c.LocalGovernmentArea)
	b.str("name_of_community", &c.NameOfCommunity)
	b.float("latitude", &c.Latitude)
	b.float("longitude", &c.Longitude)
	b.strOr("created_by", &c.CreatedBy, in.actorID)
	if !in.isUpdate {
		b.createdAt(&c.CreatedAt)
		b.require("name_of_community", "state", "local_government_area", "zone")
	}
	return c
}

func bindSubmission(_ context.Context, _ *SyncService, b *recordBinder, in bindInput) interface{} {
	sub := &models.Submission{}
	b.str("id", &sub.ID)
	b.strOr("submitted_by", &sub.SubmittedBy, in.actorID)
	b.boolean("is_complete", &sub.IsComplete)
	b.timePtr("submitted_at", &sub.SubmittedAt)
	if !in.isUpdate {
		b.createdAt(&sub.CreatedAt)
	}
	return sub
}

func bindBasicInformation(ctx context.Context, s *SyncService, b *recordBinder, in bindInput) interface{} {
	bi := &models.BasicInformation{}
	bindSection(b, &bi.SectionBase, in)
	b.strPtr("image_url", &bi.ImageURL, "image_url", "imageUrl")
	b.strPtr("nin", &bi.NIN)
	b.strPtr("community_id", &bi.CommunityID)
	b.str("state", &bi.State)
	b.str("local_government_area", &bi.LocalGovernmentArea)
	b.str("name_of_community", &bi.NameOfCommunity)
	b.strPtr("zone", &bi.Zone)
	b.float("latitude", &bi.Latitude)
	b.float("longitude", &bi.Longitude)
	if in.isUpdate {
		b.timePtrInto("date_of_survey", &bi.DateOfSurvey)
	} else {
		b.timeOrNow("date_of_survey", &bi.DateOfSurvey)
		b.require("state", "local_government_area", "name_of_community")
	}

	if bi.ImageURL == nil && in.attachment != nil && bi.ID != "" {
		if key, ok := s.persistImage(ctx, bi.ID, in.attachment); ok {
			bi.ImageURL = &key
			b.touch("image_url")
		}
	}
	return bi
}

// persistImage stores an uploaded survey photo. Failures are logged and
// otherwise ignored so the record itself still syncs.
func (s *SyncService) persistImage(ctx context.Context, recordID string, file *Attachment) (string, bool) {
	if s.store == nil || file == nil {
		return "", false
	}
	contentType := file.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}
	ext := "jpg"
	if parts := strings.SplitN(contentType, "/", 2); len(parts) == 2 && parts[1] != "" {
		ext = strings.ToLower(parts[1])
	}
	key := "nomadic/basic-information/" + recordID + "." + ext

	meta := map[string]string{
		"ownerId":      recordID,
		"ownerType":    TableBasicInformation,
		"syncSource":   "mobile-app-multipart",
		"originalSize": strconv.Itoa(len(file.Data)),
	}
	if err := s.store.Save(ctx, key, contentType, file.Data, meta, storage.Public); err != nil {
		logger.L().Warn("⚠️  Failed to persist basic information image",
			zap.String("record_id", recordID), zap.Error(err))
		return "", false
	}
	return key, true
}

func bindDemographicInformation(_ context.Context, _ *SyncService, b *recordBinder, in bindInput) interface{} {
	d := &models.DemographicInformation{}
	bindSection(b, &d.SectionBase, in)
	b.str("first_name", &d.FirstName)
	b.strPtr("middle_name", &d.MiddleName)
	b.str("last_name", &d.LastName)
	b.str("sex", &d.Sex)
	b.str("age_range", &d.AgeRange)
	b.strPtr("phone_number", &d.PhoneNumber)
	b.strPtr("email", &d.Email)
	b.str("level_of_education", &d.LevelOfEducation)
	b.str("type_of_nomadism", &d.TypeOfNomadism)
	b.boolean("occupation_herding", &d.OccupationHerding)
	b.boolean("occupation_farming", &d.OccupationFarming)
	b.boolean("occupation_fishing", &d.OccupationFishing)
	b.boolean("occupation_trading", &d.OccupationTrading)
	b.boolean("occupation_artisan", &d.OccupationArtisan)
	b.boolean("occupation_others", &d.OccupationOthers)
	b.strPtr("facial_capture_file_path", &d.FacialCaptureFilePath)
	b.strPtr("thumb_print_file_path", &d.ThumbPrintFilePath)
	if !in.isUpdate {
		b.require("first_name", "last_name", "sex", "age_range", "level_of_education", "type_of_nomadism")
	}
	return d
}

func bindCurrentSkills(_ context.Context, _ *SyncService, b *recordBinder, in bindInput) interface{} {
	c := &models.CurrentSkills{}
	bindSection(b, &c.SectionBase, in)
	b.str("has_skills", &c.HasSkills)
	b.strPtr("skills_description", &c.SkillsDescription)
	b.strPtr("confidence_level", &c.ConfidenceLevel)
	b.strPtr("reason_for_no_skills", &c.ReasonForNoSkills)
	if !in.isUpdate {
		b.require("has_skills")
	}
	return c
}

func bindSkillsNeed(_ context.Context, _ *SyncService, b *recordBinder, in bindInput) interface{} {
	n := &models.SkillsNeed{}
	bindSection(b, &n.SectionBase, in)
	b.str("want_training", &n.WantTraining)
	b.strPtr("skills_to_learn", &n.SkillsToLearn)
	b.strPtr("skills_relevance", &n.SkillsRelevance)
	if !in.isUpdate {
		b.require("want_training")
	}
	return n
}

func bindDesiredSkills(_ context.Context, _ *SyncService, b *recordBinder, in bindInput) interface{} {
	d := &models.DesiredSkills{}
	bindSection(b, &d.SectionBase, in)
	b.strPtr("community_skills_needed", &d.CommunitySkillsNeeded)

	b.boolean("interested_livestock_dairy_beef", &d.InterestedLivestockDairyBeef)
	b.boolean("interested_livestock_small_ruminants", &d.InterestedLivestockSmallRuminants)
	b.boolean("interested_livestock_feeds", &d.InterestedLivestockFeeds)
	b.boolean("interested_poultry", &d.InterestedPoultry)
	b.boolean("interested_rabbitary", &d.InterestedRabbitary)
	b.boolean("interested_fish_production", &d.InterestedFishProduction)
	b.boolean("interested_snailery", &d.InterestedSnailery)
	b.boolean("interested_bee_keeping", &d.InterestedBeeKeeping)
	b.boolean("interested_crop_production", &d.InterestedCropProduction)
	b.boolean("interested_irrigation", &d.InterestedIrrigation)
	b.boolean("interested_gardening", &d.InterestedGardening)
	b.boolean("interested_ict", &d.InterestedICT)
	b.boolean("interested_phone_repairs", &d.InterestedPhoneRepairs)
	b.boolean("interested_fashion_design", &d.InterestedFashionDesign)
	b.boolean("interested_knitting", &d.InterestedKnitting)
	b.boolean("interested_hair_dressing", &d.InterestedHairDressing)
	b.boolean("interested_beads_raffia", &d.InterestedBeadsRaffia)
	b.boolean("interested_shoe_bag_making", &d.InterestedShoeBagMaking)
	b.boolean("interested_auto_mechanic", &d.InterestedAutoMechanic)
	b.boolean("interested_carpentry", &d.InterestedCarpentry)
	b.boolean("interested_masonry", &d.InterestedMasonry)
	b.boolean("interested_pomade_soap_making", &d.InterestedPomadeSoapMaking)
	b.boolean("interested_pottery_ceramics", &d.InterestedPotteryCeramics)
	b.boolean("interested_solar_power", &d.InterestedSolarPower)
	b.boolean("interested_welding", &d.InterestedWelding)
	b.boolean("interested_catering", &d.InterestedCatering)
	b.boolean("interested_others", &d.InterestedOthers)

	b.strPtr("most_preferred_skill", &d.MostPreferredSkill)
	b.strPtr("learning_method", &d.LearningMethod)
	b.strPtr("available_resources", &d.AvailableResources)
	b.strPtr("preferred_learning_time", &d.PreferredLearningTime)

	b.boolean("barrier_financial_cost", &d.BarrierFinancialCost)
	b.boolean("barrier_time_constraint", &d.BarrierTimeConstraint)
	b.boolean("barrier_lack_of_information", &d.BarrierLackOfInformation)
	b.boolean("barrier_inaccessibility", &d.BarrierInaccessibility)
	b.boolean("barrier_insecurity", &d.BarrierInsecurity)
	b.boolean("barrier_health_challenges", &d.BarrierHealthChallenges)
	b.boolean("barrier_others", &d.BarrierOthers)

	b.strPtr("available_for_external_training", &d.AvailableForExternalTraining)
	b.strPtr("external_training_timeline", &d.ExternalTrainingTimeline)
	return d
}

func bindPerceptionOfSkills(_ context.Context, _ *SyncService, b *recordBinder, in bindInput) interface{} {
	p := &models.PerceptionOfSkills{}
	bindSection(b, &p.SectionBase, in)
	b.str("skills_importance_for_development", &p.SkillsImportanceForDevelopment)
	b.str("community_skills_support_level", &p.CommunitySkillsSupportLevel)
	b.str("skills_effective_for_financial_security", &p.SkillsEffectiveForFinancialSecurity)
	b.strPtr("experiences_with_skills_acquisition", &p.ExperiencesWithSkillsAcquisition)
	b.strPtr("suggestions_for_improvement", &p.SuggestionsForImprovement)
	if !in.isUpdate {
		b.require("skills_importance_for_development", "community_skills_support_level", "skills_effective_for_financial_security")
	}
	return p
}
