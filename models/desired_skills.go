package models

type DesiredSkills struct {
	SectionBase
	CommunitySkillsNeeded *string `json:"communitySkillsNeeded" gorm:"type:text"`

	InterestedLivestockDairyBeef      bool `json:"interestedLivestockDairyBeef" gorm:"not null;default:false"`
	InterestedLivestockSmallRuminants bool `json:"interestedLivestockSmallRuminants" gorm:"not null;default:false"`
	InterestedLivestockFeeds          bool `json:"interestedLivestockFeeds" gorm:"not null;default:false"`
	InterestedPoultry                 bool `json:"interestedPoultry" gorm:"not null;default:false"`
	InterestedRabbitary               bool `json:"interestedRabbitary" gorm:"not null;default:false"`
	InterestedFishProduction          bool `json:"interestedFishProduction" gorm:"not null;default:false"`
	InterestedSnailery                bool `json:"interestedSnailery" gorm:"not null;default:false"`
	InterestedBeeKeeping              bool `json:"interestedBeeKeeping" gorm:"not null;default:false"`
	InterestedCropProduction          bool `json:"interestedCropProduction" gorm:"not null;default:false"`
	InterestedIrrigation              bool `json:"interestedIrrigation" gorm:"not null;default:false"`
	InterestedGardening               bool `json:"interestedGardening" gorm:"not null;default:false"`
	InterestedICT                     bool `json:"interestedIct" gorm:"column:interested_ict;not null;default:false"`
	InterestedPhoneRepairs            bool `json:"interestedPhoneRepairs" gorm:"not null;default:false"`
	InterestedFashionDesign           bool `json:"interestedFashionDesign" gorm:"not null;default:false"`
	InterestedKnitting                bool `json:"interestedKnitting" gorm:"not null;default:false"`
	InterestedHairDressing            bool `json:"interestedHairDressing" gorm:"not null;default:false"`
	InterestedBeadsRaffia             bool `json:"interestedBeadsRaffia" gorm:"not null;default:false"`
	InterestedShoeBagMaking           bool `json:"interestedShoeBagMaking" gorm:"not null;default:false"`
	InterestedAutoMechanic            bool `json:"interestedAutoMechanic" gorm:"not null;default:false"`
	InterestedCarpentry               bool `json:"interestedCarpentry" gorm:"not null;default:false"`
	InterestedMasonry                 bool `json:"interestedMasonry" gorm:"not null;default:false"`
	InterestedPomadeSoapMaking        bool `json:"interestedPomadeSoapMaking" gorm:"not null;default:false"`
	InterestedPotteryCeramics         bool `json:"interestedPotteryCeramics" gorm:"not null;default:false"`
	InterestedSolarPower              bool `json:"interestedSolarPower" gorm:"not null;default:false"`
	InterestedWelding                 bool `json:"interestedWelding" gorm:"not null;default:false"`
	InterestedCatering                bool `json:"interestedCatering" gorm:"not null;default:false"`
	InterestedOthers                  bool `json:"interestedOthers" gorm:"not null;default:false"`

	MostPreferredSkill    *string `json:"mostPreferredSkill" gorm:"size:255;index"`
	LearningMethod        *string `json:"learningMethod" gorm:"size:30"`
	AvailableResources    *string `json:"availableResources" gorm:"size:30"`
	PreferredLearningTime *string `json:"preferredLearningTime" gorm:"size:20"`

	BarrierFinancialCost     bool `json:"barrierFinancialCost" gorm:"not null;default:false"`
	BarrierTimeConstraint    bool `json:"barrierTimeConstraint" gorm:"not null;default:false"`
	BarrierLackOfInformation bool `json:"barrierLackOfInformation" gorm:"not null;default:false"`
	BarrierInaccessibility   bool `json:"barrierInaccessibility" gorm:"not null;default:false"`
	BarrierInsecurity        bool `json:"barrierInsecurity" gorm:"not null;default:false"`
	BarrierHealthChallenges  bool `json:"barrierHealthChallenges" gorm:"not null;default:false"`
	BarrierOthers            bool `json:"barrierOthers" gorm:"not null;default:false"`

	AvailableForExternalTraining *string `json:"availableForExternalTraining" gorm:"size:3"`
	ExternalTrainingTimeline     *string `json:"externalTrainingTimeline" gorm:"type:text"`
}

func (DesiredSkills) TableName() string {
	return "desired_skills"
}

// SkillInterestColumns maps every interest flag column to its display label.
var SkillInterestColumns = []LabelledColumn{
	{"interested_livestock_dairy_beef", "Livestock (Dairy/Beef)"},
	{"interested_livestock_small_ruminants", "Small Ruminants"},
	{"interested_livestock_feeds", "Livestock Feeds"},
	{"interested_poultry", "Poultry"},
	{"interested_rabbitary", "Rabbitary"},
	{"interested_fish_production", "Fish Production"},
	{"interested_snailery", "Snailery"},
	{"interested_bee_keeping", "Bee Keeping"},
	{"interested_crop_production", "Crop Production"},
	{"interested_irrigation", "Irrigation"},
	{"interested_gardening", "Gardening"},
	{"interested_ict", "ICT"},
	{"interested_phone_repairs", "Phone Repairs"},
	{"interested_fashion_design", "Fashion Design"},
	{"interested_knitting", "Knitting"},
	{"interested_hair_dressing", "Hair Dressing"},
	{"interested_beads_raffia", "Beads & Raffia"},
	{"interested_shoe_bag_making", "Shoe & Bag Making"},
	{"interested_auto_mechanic", "Auto Mechanic"},
	{"interested_carpentry", "Carpentry"},
	{"interested_masonry", "Masonry"},
	{"interested_pomade_soap_making", "Pomade & Soap Making"},
	{"interested_pottery_ceramics", "Pottery & Ceramics"},
	{"interested_solar_power", "Solar Power"},
	{"interested_welding", "Welding"},
	{"interested_catering", "Catering"},
	{"interested_others", "Others"},
}

// BarrierColumns maps the boolean barrier columns to display labels.
var BarrierColumns = []LabelledColumn{
	{"barrier_financial_cost", "Financial Cost"},
	{"barrier_time_constraint", "Time Constraints"},
	{"barrier_lack_of_information", "Lack of Information"},
	{"barrier_inaccessibility", "Distance/Accessibility"},
	{"barrier_insecurity", "Insecurity"},
	{"barrier_health_challenges", "Health Challenges"},
	{"barrier_others", "Other Barriers"},
}

type LabelledColumn struct {
	Column string
	Label  string
}
