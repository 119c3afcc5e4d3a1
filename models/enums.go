package models

// Geopolitical zones.
const (
	ZoneNorthWest    = "north-west"
	ZoneNorthEast    = "north-east"
	ZoneNorthCentral = "north-central"
	ZoneSouthEast    = "south-east"
	ZoneSouthWest    = "south-west"
	ZoneSouthSouth   = "south-south"
)

var Zones = []string{ZoneNorthWest, ZoneNorthEast, ZoneNorthCentral, ZoneSouthEast, ZoneSouthWest, ZoneSouthSouth}

const (
	SexMale   = "male"
	SexFemale = "female"
)

var AgeRanges = []string{"16-20", "21-25", "26-30", "31-35", "36_and_above"}

var EducationLevels = []string{"quranic", "adult_literacy", "fslc", "jssce", "ssce", "aissce", "tertiary", "non_literate"}

const (
	NomadismSettled     = "settled"
	NomadismSemiSettled = "semi_settled"
	NomadismMobile      = "mobile"
)

var NomadismTypes = []string{NomadismSettled, NomadismSemiSettled, NomadismMobile}

var LearningMethods = []string{"formal_training", "informal_training", "apprenticeship", "others"}

var AvailableResources = []string{"vocational_centres", "local_centres", "community_programmes", "apprenticeship_workshops", "none"}

var LearningTimes = []string{"morning", "afternoon", "evening"}

// OneOf reports whether v is a member of set.
func OneOf(v string, set []string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
