package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Submission is the root record of one survey response. Each of the six
// sections references it; at most one section of each kind is expected.
type Submission struct {
	ID          string     `json:"id" gorm:"size:64;primaryKey"`
	SubmittedBy *string    `json:"submittedBy" gorm:"type:uuid;index"`
	IsComplete  bool       `json:"isComplete" gorm:"not null;default:false"`
	SubmittedAt *time.Time `json:"submittedAt"`
	CreatedAt   time.Time  `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt   time.Time  `json:"updatedAt" gorm:"autoUpdateTime"`

	Submitter              *User                   `json:"submitter,omitempty" gorm:"foreignKey:SubmittedBy;constraint:OnDelete:SET NULL"`
	BasicInformation       *BasicInformation       `json:"basicInformation,omitempty" gorm:"foreignKey:SubmissionID;constraint:OnDelete:CASCADE"`
	DemographicInformation *DemographicInformation `json:"demographicInformation,omitempty" gorm:"foreignKey:SubmissionID;constraint:OnDelete:CASCADE"`
	CurrentSkills          *CurrentSkills          `json:"currentSkills,omitempty" gorm:"foreignKey:SubmissionID;constraint:OnDelete:CASCADE"`
	SkillsNeed             *SkillsNeed             `json:"skillsNeed,omitempty" gorm:"foreignKey:SubmissionID;constraint:OnDelete:CASCADE"`
	DesiredSkills          *DesiredSkills          `json:"desiredSkills,omitempty" gorm:"foreignKey:SubmissionID;constraint:OnDelete:CASCADE"`
	PerceptionOfSkills     *PerceptionOfSkills     `json:"perceptionOfSkills,omitempty" gorm:"foreignKey:SubmissionID;constraint:OnDelete:CASCADE"`
}

func (Submission) TableName() string {
	return "skills_survey_submissions"
}

func (s *Submission) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// SectionPreloads lists the associations loaded for a full survey view.
var SectionPreloads = []string{
	"BasicInformation",
	"DemographicInformation",
	"CurrentSkills",
	"SkillsNeed",
	"DesiredSkills",
	"PerceptionOfSkills",
}

// SectionBase carries the columns shared by every submission section.
type SectionBase struct {
	ID           string    `json:"id" gorm:"size:64;primaryKey"`
	SubmissionID string    `json:"submissionId" gorm:"size:64;not null;index"`
	EnteredBy    *string   `json:"enteredBy" gorm:"type:uuid"`
	CreatedAt    time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

// Base gives generic code access to the shared section columns.
func (b *SectionBase) Base() *SectionBase {
	return b
}

func (b *SectionBase) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

type BasicInformation struct {
	SectionBase
	CommunityID         *string   `json:"communityId" gorm:"size:64;index"`
	ImageURL            *string   `json:"imageUrl" gorm:"column:image_url;type:text"`
	NIN                 *string   `json:"nin" gorm:"column:nin;size:20"`
	DateOfSurvey        time.Time `json:"dateOfSurvey" gorm:"not null"`
	State               string    `json:"state" gorm:"size:100;not null;index"`
	LocalGovernmentArea string    `json:"localGovernmentArea" gorm:"size:100;not null;index"`
	NameOfCommunity     string    `json:"nameOfCommunity" gorm:"size:255;not null"`
	Zone                *string   `json:"zone" gorm:"size:20"`
	Latitude            *float64  `json:"latitude"`
	Longitude           *float64  `json:"longitude"`

	Community *Community `json:"community,omitempty" gorm:"foreignKey:CommunityID;constraint:OnDelete:SET NULL"`
}

func (BasicInformation) TableName() string {
	return "basic_information"
}

type DemographicInformation struct {
	SectionBase
	FirstName             string  `json:"firstName" gorm:"size:100;not null"`
	MiddleName            *string `json:"middleName" gorm:"size:100"`
	LastName              string  `json:"lastName" gorm:"size:100;not null"`
	Sex                   string  `json:"sex" gorm:"size:10;not null;index"`
	AgeRange              string  `json:"ageRange" gorm:"size:20;not null"`
	PhoneNumber           *string `json:"phoneNumber" gorm:"size:20"`
	Email                 *string `json:"email" gorm:"size:255"`
	LevelOfEducation      string  `json:"levelOfEducation" gorm:"size:30;not null"`
	TypeOfNomadism        string  `json:"typeOfNomadism" gorm:"size:20;not null;index"`
	OccupationHerding     bool    `json:"occupationHerding" gorm:"not null;default:false"`
	OccupationFarming     bool    `json:"occupationFarming" gorm:"not null;default:false"`
	OccupationFishing     bool    `json:"occupationFishing" gorm:"not null;default:false"`
	OccupationTrading     bool    `json:"occupationTrading" gorm:"not null;default:false"`
	OccupationArtisan     bool    `json:"occupationArtisan" gorm:"not null;default:false"`
	OccupationOthers      bool    `json:"occupationOthers" gorm:"not null;default:false"`
	FacialCaptureFilePath *string `json:"facialCaptureFilePath" gorm:"type:text"`
	ThumbPrintFilePath    *string `json:"thumbPrintFilePath" gorm:"type:text"`
}

func (DemographicInformation) TableName() string {
	return "demographic_information"
}

type CurrentSkills struct {
	SectionBase
	HasSkills         string  `json:"hasSkills" gorm:"size:3;not null"`
	SkillsDescription *string `json:"skillsDescription" gorm:"type:text"`
	ConfidenceLevel   *string `json:"confidenceLevel" gorm:"size:1"`
	ReasonForNoSkills *string `json:"reasonForNoSkills" gorm:"type:text"`
}

func (CurrentSkills) TableName() string {
	return "current_skills"
}

type SkillsNeed struct {
	SectionBase
	WantTraining    string  `json:"wantTraining" gorm:"size:3;not null"`
	SkillsToLearn   *string `json:"skillsToLearn" gorm:"type:text"`
	SkillsRelevance *string `json:"skillsRelevance" gorm:"size:1"`
}

func (SkillsNeed) TableName() string {
	return "skills_need"
}

type PerceptionOfSkills struct {
	SectionBase
	SkillsImportanceForDevelopment      string  `json:"skillsImportanceForDevelopment" gorm:"size:1;not null"`
	CommunitySkillsSupportLevel         string  `json:"communitySkillsSupportLevel" gorm:"size:1;not null"`
	SkillsEffectiveForFinancialSecurity string  `json:"skillsEffectiveForFinancialSecurity" gorm:"size:1;not null"`
	ExperiencesWithSkillsAcquisition    *string `json:"experiencesWithSkillsAcquisition" gorm:"type:text"`
	SuggestionsForImprovement           *string `json:"suggestionsForImprovement" gorm:"type:text"`
}

func (PerceptionOfSkills) TableName() string {
	return "perception_of_skills"
}
