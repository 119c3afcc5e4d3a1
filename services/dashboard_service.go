package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/shamsucomsoft/onv-ncne-api/logger"
	"github.com/shamsucomsoft/onv-ncne-api/models"
	"github.com/shamsucomsoft/onv-ncne-api/utils"
)

// Placeholder ratios used where no measured data exists.
const (
	estimatedPeoplePerSurvey     = 180
	estimatedSurveysPerCommunity = 15
	estimatedTrainingRate        = 25
)

const estimateBasis = "population = surveys x 180; communities = surveys / 15; centres = communities x 0.3; active centres = centres x 0.8; training rate fixed at 25%"

const (
	joinBasic       = "LEFT JOIN basic_information bi ON bi.submission_id = s.id"
	joinDemographic = "LEFT JOIN demographic_information di ON di.submission_id = s.id"
	joinDesired     = "LEFT JOIN desired_skills ds ON ds.submission_id = s.id"
	joinCurrent     = "LEFT JOIN current_skills cs ON cs.submission_id = s.id"
	joinNeed        = "LEFT JOIN skills_need sn ON sn.submission_id = s.id"
	joinPerception  = "LEFT JOIN perception_of_skills ps ON ps.submission_id = s.id"
)

// DashboardFilter narrows every dashboard query. Empty fields are ignored.
type DashboardFilter struct {
	State    string
	Zone     string
	DateFrom *time.Time
	DateTo   *time.Time
}

// ParseDashboardFilter validates raw query parameters. Dates accept RFC 3339
// or YYYY-MM-DD.
func ParseDashboardFilter(state, zone, dateFrom, dateTo string) (DashboardFilter, error) {
	f := DashboardFilter{State: strings.TrimSpace(state), Zone: strings.TrimSpace(zone)}
	if strings.EqualFold(f.State, "ALL") {
		f.State = ""
	}
	if f.Zone != "" && !models.OneOf(f.Zone, models.Zones) {
		return f, utils.BadRequest("zone must be one of " + strings.Join(models.Zones, ", "))
	}
	var err error
	if f.DateFrom, err = parseDate("dateFrom", dateFrom); err != nil {
		return f, err
	}
	if f.DateTo, err = parseDate("dateTo", dateTo); err != nil {
		return f, err
	}
	return f, nil
}

func parseDate(name, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, utils.BadRequest(name + " must be a valid date")
}

func (f DashboardFilter) apply(q *gorm.DB) *gorm.DB {
	if f.State != "" {
		q = q.Where("bi.state = ?", f.State)
	}
	if f.Zone != "" {
		q = q.Where("bi.zone = ?", f.Zone)
	}
	if f.DateFrom != nil {
		q = q.Where("s.submitted_at >= ?", *f.DateFrom)
	}
	if f.DateTo != nil {
		q = q.Where("s.submitted_at <= ?", *f.DateTo)
	}
	return q
}

type OverallStats struct {
	TotalSurveys     int64            `json:"totalSurveys"`
	CompletedSurveys int64            `json:"completedSurveys"`
	CompletionRate   int64            `json:"completionRate"`
	Estimates        OverallEstimates `json:"estimates"`
}

// OverallEstimates are derived from survey counts with fixed multipliers.
type OverallEstimates struct {
	IsEstimate             bool   `json:"isEstimate"`
	Basis                  string `json:"basis"`
	TotalNomadicPopulation int64  `json:"totalNomadicPopulation"`
	TotalCommunities       int64  `json:"totalCommunities"`
	SkillsCenters          int64  `json:"skillsCenters"`
	ActiveCenters          int64  `json:"activeCenters"`
	SkillsTrainingRate     int64  `json:"skillsTrainingRate"`
}

type StateEstimates struct {
	IsEstimate         bool  `json:"isEstimate"`
	NomadicPopulation  int64 `json:"nomadicPopulation"`
	SkillsCenters      int64 `json:"skillsCenters"`
	SkillsTrainingRate int64 `json:"skillsTrainingRate"`
}

type StateStats struct {
	State            string         `json:"state"`
	Code             string         `json:"code"`
	Zone             string         `json:"zone"`
	TotalSurveys     int64          `json:"totalSurveys"`
	CompletedSurveys int64          `json:"completedSurveys"`
	Estimates        StateEstimates `json:"estimates"`
}

type SkillInterestByGender struct {
	Skill       string `json:"skill"`
	MaleCount   int64  `json:"maleCount"`
	FemaleCount int64  `json:"femaleCount"`
	TotalCount  int64  `json:"totalCount"`
}

type SkillBarrier struct {
	Barrier    string `json:"barrier"`
	Count      int64  `json:"count"`
	Percentage int64  `json:"percentage"`
}

type SkillProficiency struct {
	Skill         string `json:"skill"`
	NoSkills      int64  `json:"noSkills"`
	Basic         int64  `json:"basic"`
	Intermediate  int64  `json:"intermediate"`
	Advanced      int64  `json:"advanced"`
	IsPlaceholder bool   `json:"isPlaceholder"`
}

type NomadismType struct {
	Type       string `json:"type"`
	Count      int64  `json:"count"`
	Percentage int64  `json:"percentage"`
}

type TopSkill struct {
	Skill      string `json:"skill"`
	Count      int64  `json:"count"`
	Trend      string `json:"trend"`
	Percentage int64  `json:"percentage"`
}

type DashboardStats struct {
	OverallStats          OverallStats            `json:"overallStats"`
	StateStats            []StateStats            `json:"stateStats"`
	SkillInterestByGender []SkillInterestByGender `json:"skillInterestByGender"`
	SkillBarriers         []SkillBarrier          `json:"skillBarriers"`
	SkillProficiency      []SkillProficiency      `json:"skillProficiency"`
	NomadismTypes         []NomadismType          `json:"nomadismTypes"`
	TopSkills             []TopSkill              `json:"topSkills"`
	LastUpdated           time.Time               `json:"lastUpdated"`
}

type InsightMetrics struct {
	Value int64  `json:"value"`
	Unit  string `json:"unit"`
}

type Insight struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Impact      string          `json:"impact"`
	Category    string          `json:"category"`
	Metrics     *InsightMetrics `json:"metrics,omitempty"`
}

type DashboardInsights struct {
	Insights        []Insight `json:"insights"`
	KeyFindings     []string  `json:"keyFindings"`
	Recommendations []string  `json:"recommendations"`
}

type StateOption struct {
	State string `json:"state"`
	Code  string `json:"code"`
}

var genderSkillColumns = []models.LabelledColumn{
	{Column: "interested_livestock_dairy_beef", Label: "Livestock Production"},
	{Column: "interested_crop_production", Label: "Crop Farming"},
	{Column: "interested_irrigation", Label: "Irrigation"},
	{Column: "interested_welding", Label: "Welding"},
	{Column: "interested_auto_mechanic", Label: "Auto Mechanic"},
	{Column: "interested_ict", Label: "ICT Skills"},
	{Column: "interested_poultry", Label: "Poultry"},
	{Column: "interested_fashion_design", Label: "Fashion Design"},
}

var preferredSkillLabels = map[string]string{
	"livestock_dairy_beef": "Livestock (Dairy & Beef)",
	"crop_production":      "Crop Production",
	"irrigation":           "Irrigation Farming",
	"poultry":              "Poultry Farming",
	"welding":              "Welding & Fabrication",
	"ict":                  "ICT Skills",
	"auto_mechanic":        "Auto Mechanic",
	"fashion_design":       "Fashion Design",
}

var stateCodes = map[string]string{
	"Sokoto":  "SK",
	"Kebbi":   "KB",
	"Zamfara": "ZF",
	"Katsina": "KT",
	"Kano":    "KN",
	"Yobe":    "YB",
	"Bauchi":  "BC",
	"Niger":   "NG",
	"Borno":   "BO",
	"Adamawa": "AD",
	"Taraba":  "TB",
	"Plateau": "PL",
	"Kaduna":  "KD",
	"Kwara":   "KW",
	"Oyo":     "OY",
}

func stateCode(state string) string {
	if code, ok := stateCodes[state]; ok {
		return code
	}
	if len(state) >= 2 {
		return strings.ToUpper(state[:2])
	}
	return "UK"
}

// DashboardService computes survey analytics. Queries inside one call are
// independent reads and run concurrently.
type DashboardService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db, now: time.Now}
}

func (s *DashboardService) scoped(ctx context.Context, f DashboardFilter, joins ...string) *gorm.DB {
	q := s.db.WithContext(ctx).Table("skills_survey_submissions AS s").Joins(joinBasic)
	for _, j := range joins {
		q = q.Joins(j)
	}
	return f.apply(q)
}

func (s *DashboardService) Stats(ctx context.Context, f DashboardFilter) (*DashboardStats, error) {
	out := &DashboardStats{SkillProficiency: skillProficiencyPlaceholder(), LastUpdated: s.now()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.OverallStats, err = s.overall(gctx, f)
		return err
	})
	g.Go(func() (err error) {
		out.StateStats, err = s.stateStats(gctx, f)
		return err
	})
	g.Go(func() (err error) {
		out.SkillInterestByGender, err = s.skillInterestByGender(gctx, f)
		return err
	})
	g.Go(func() (err error) {
		out.SkillBarriers, err = s.skillBarriers(gctx, f)
		return err
	})
	g.Go(func() (err error) {
		out.NomadismTypes, err = s.nomadismTypes(gctx, f)
		return err
	})
	g.Go(func() (err error) {
		out.TopSkills, err = s.topSkills(gctx, f)
		return err
	})
	if err := g.Wait(); err != nil {
		logger.L().Error("❌ Failed to compute dashboard statistics", zap.Error(err))
		return nil, err
	}
	return out, nil
}

func (s *DashboardService) overall(ctx context.Context, f DashboardFilter) (OverallStats, error) {
	var st OverallStats
	row := s.scoped(ctx, f).Select("COUNT(*), " + countTrue("s.is_complete")).Row()
	if err := row.Scan(&st.TotalSurveys, &st.CompletedSurveys); err != nil {
		return st, err
	}
	st.CompletionRate = percentOf(st.CompletedSurveys, st.TotalSurveys)

	communities := st.TotalSurveys / estimatedSurveysPerCommunity
	centres := int64(float64(communities) * estimatedCentreRatio)
	st.Estimates = OverallEstimates{
		IsEstimate:             true,
		Basis:                  estimateBasis,
		TotalNomadicPopulation: st.TotalSurveys * estimatedPeoplePerSurvey,
		TotalCommunities:       communities,
		SkillsCenters:          centres,
		ActiveCenters:          int64(float64(centres) * estimatedActiveCentreRatio),
		SkillsTrainingRate:     estimatedTrainingRate,
	}
	return st, nil
}

func (s *DashboardService) stateStats(ctx context.Context, f DashboardFilter) ([]StateStats, error) {
	var rows []struct {
		State     *string
		Zone      *string
		Total     int64
		Completed int64
	}
	err := s.scoped(ctx, f).
		Select("bi.state AS state, bi.zone AS zone, COUNT(*) AS total, " + countTrue("s.is_complete") + " AS completed").
		Group("bi.state, bi.zone").
		Order("bi.state").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := []StateStats{}
	for _, r := range rows {
		if r.State == nil || *r.State == "" {
			continue
		}
		zone := "unknown"
		if r.Zone != nil {
			zone = *r.Zone
		}
		out = append(out, StateStats{
			State:            *r.State,
			Code:             stateCode(*r.State),
			Zone:             zone,
			TotalSurveys:     r.Total,
			CompletedSurveys: r.Completed,
			Estimates: StateEstimates{
				IsEstimate:         true,
				NomadicPopulation:  r.Total * estimatedPeoplePerSurvey,
				SkillsCenters:      int64(float64(r.Total) / estimatedSurveysPerCommunity * estimatedCentreRatio),
				SkillsTrainingRate: estimatedTrainingRate,
			},
		})
	}
	return out, nil
}

func (s *DashboardService) skillInterestByGender(ctx context.Context, f DashboardFilter) ([]SkillInterestByGender, error) {
	exprs := []string{"di.sex"}
	for _, c := range genderSkillColumns {
		exprs = append(exprs, countTrue("ds."+c.Column))
	}
	rows, err := s.scoped(ctx, f, joinDemographic, joinDesired).
		Select(strings.Join(exprs, ", ")).
		Group("di.sex").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	male := make([]int64, len(genderSkillColumns))
	female := make([]int64, len(genderSkillColumns))
	for rows.Next() {
		var sex *string
		counts := make([]int64, len(genderSkillColumns))
		dest := []interface{}{&sex}
		for i := range counts {
			dest = append(dest, &counts[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		switch {
		case sex != nil && *sex == models.SexMale:
			copy(male, counts)
		case sex != nil && *sex == models.SexFemale:
			copy(female, counts)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := []SkillInterestByGender{}
	for i, c := range genderSkillColumns {
		if male[i]+female[i] == 0 {
			continue
		}
		out = append(out, SkillInterestByGender{Skill: c.Label, MaleCount: male[i], FemaleCount: female[i], TotalCount: male[i] + female[i]})
	}
	return out, nil
}

func (s *DashboardService) skillBarriers(ctx context.Context, f DashboardFilter) ([]SkillBarrier, error) {
	var total int64
	if err := s.scoped(ctx, f).Count(&total).Error; err != nil {
		return nil, err
	}
	counts, err := flagCounts(s.scoped(ctx, f, joinDesired), "ds", models.BarrierColumns)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		total = 1
	}

	out := []SkillBarrier{}
	for i, c := range models.BarrierColumns {
		if counts[i] == 0 {
			continue
		}
		out = append(out, SkillBarrier{Barrier: c.Label, Count: counts[i], Percentage: percentOf(counts[i], total)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out, nil
}

func (s *DashboardService) nomadismTypes(ctx context.Context, f DashboardFilter) ([]NomadismType, error) {
	var rows []ValueCount
	if err := groupCount(s.scoped(ctx, f, joinDemographic), "di.type_of_nomadism", &rows); err != nil {
		return nil, err
	}
	var total int64
	for _, r := range rows {
		total += r.Count
	}

	out := []NomadismType{}
	for _, r := range rows {
		if r.Value == nil || *r.Value == "" {
			continue
		}
		label, ok := nomadismLabels[*r.Value]
		if !ok {
			label = *r.Value
		}
		out = append(out, NomadismType{Type: label, Count: r.Count, Percentage: percentOf(r.Count, total)})
	}
	return out, nil
}

// topSkills ranks the ten most preferred skills. A skill trends up when its
// share is above the mean share of the listed skills.
func (s *DashboardService) topSkills(ctx context.Context, f DashboardFilter) ([]TopSkill, error) {
	var rows []ValueCount
	q := s.scoped(ctx, f, joinDesired).Where("ds.most_preferred_skill IS NOT NULL").Limit(10)
	if err := groupCount(q, "ds.most_preferred_skill", &rows); err != nil {
		return nil, err
	}
	var total int64
	for _, r := range rows {
		total += r.Count
	}

	out := []TopSkill{}
	for _, r := range rows {
		if r.Value == nil || *r.Value == "" {
			continue
		}
		label, ok := preferredSkillLabels[*r.Value]
		if !ok {
			label = *r.Value
		}
		trend := "down"
		if float64(r.Count)*float64(len(rows)) >= float64(total) {
			trend = "up"
		}
		out = append(out, TopSkill{Skill: label, Count: r.Count, Trend: trend, Percentage: percentOf(r.Count, total)})
	}
	return out, nil
}

func skillProficiencyPlaceholder() []SkillProficiency {
	return []SkillProficiency{
		{Skill: "Livestock Skills", NoSkills: 25, Basic: 35, Intermediate: 28, Advanced: 12, IsPlaceholder: true},
		{Skill: "Agricultural Skills", NoSkills: 35, Basic: 28, Intermediate: 25, Advanced: 12, IsPlaceholder: true},
		{Skill: "Technical Skills", NoSkills: 65, Basic: 22, Intermediate: 10, Advanced: 3, IsPlaceholder: true},
	}
}

// Insights derives narrative findings from Stats.
func (s *DashboardService) Insights(ctx context.Context, f DashboardFilter) (*DashboardInsights, error) {
	stats, err := s.Stats(ctx, f)
	if err != nil {
		return nil, err
	}
	return buildInsights(stats), nil
}

func buildInsights(stats *DashboardStats) *DashboardInsights {
	out := &DashboardInsights{Insights: []Insight{}, KeyFindings: []string{}, Recommendations: []string{}}

	rate := stats.OverallStats.CompletionRate
	if rate < 70 {
		out.Insights = append(out.Insights, Insight{
			Title:       "Low Survey Completion Rate",
			Description: fmt.Sprintf("Only %d%% of surveys are being completed, indicating potential issues with survey length or accessibility.", rate),
			Impact:      "high",
			Category:    "barrier",
			Metrics:     &InsightMetrics{Value: rate, Unit: "%"},
		})
		out.Recommendations = append(out.Recommendations, "Consider simplifying survey process and providing offline completion options")
	}

	if len(stats.SkillBarriers) > 0 && stats.SkillBarriers[0].Percentage > 30 {
		b := stats.SkillBarriers[0]
		out.Insights = append(out.Insights, Insight{
			Title:       "High Impact Barrier: " + b.Barrier,
			Description: fmt.Sprintf("%d%% of respondents cite %s as a major barrier to skills training.", b.Percentage, strings.ToLower(b.Barrier)),
			Impact:      "high",
			Category:    "barrier",
			Metrics:     &InsightMetrics{Value: b.Percentage, Unit: "%"},
		})
		out.Recommendations = append(out.Recommendations,
			fmt.Sprintf("Address %s through targeted interventions and policy measures", strings.ToLower(b.Barrier)))
	}

	if len(stats.TopSkills) > 0 {
		top := stats.TopSkills[0]
		out.KeyFindings = append(out.KeyFindings,
			fmt.Sprintf("%s is the most in-demand skill with %d respondents showing interest", top.Skill, top.Count))
		out.Insights = append(out.Insights, Insight{
			Title:       "High Demand Skill Identified",
			Description: fmt.Sprintf("%s shows highest demand with %d%% of skill preferences.", top.Skill, top.Percentage),
			Impact:      "medium",
			Category:    "opportunity",
			Metrics:     &InsightMetrics{Value: top.Percentage, Unit: "%"},
		})
	}

	for _, t := range stats.NomadismTypes {
		if t.Type == nomadismLabels[models.NomadismSettled] && t.Percentage > 40 {
			out.KeyFindings = append(out.KeyFindings,
				fmt.Sprintf("%d%% of nomads are settled, indicating potential for permanent training centers", t.Percentage))
			out.Recommendations = append(out.Recommendations,
				"Establish permanent skills training centers in areas with high settled nomad populations")
		}
	}
	return out
}

// States lists the states present in the filtered data, led by an "all" entry.
func (s *DashboardService) States(ctx context.Context, f DashboardFilter) ([]StateOption, error) {
	stats, err := s.stateStats(ctx, f)
	if err != nil {
		return nil, err
	}
	out := []StateOption{{State: "All States", Code: "ALL"}}
	seen := map[string]bool{}
	for _, st := range stats {
		if seen[st.State] {
			continue
		}
		seen[st.State] = true
		out = append(out, StateOption{State: st.State, Code: st.Code})
	}
	return out, nil
}
