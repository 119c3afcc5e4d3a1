package routes

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shamsucomsoft/onv-ncne-api/config"
	"github.com/shamsucomsoft/onv-ncne-api/database/dbtest"
	"github.com/shamsucomsoft/onv-ncne-api/middleware"
	"github.com/shamsucomsoft/onv-ncne-api/models"
	"github.com/shamsucomsoft/onv-ncne-api/services"
	"github.com/shamsucomsoft/onv-ncne-api/storage"
	"github.com/shamsucomsoft/onv-ncne-api/utils"
	"github.com/shamsucomsoft/onv-ncne-api/websocket"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testApp struct {
	router    *gin.Engine
	db        *gorm.DB
	admin     string
	collector string
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	db := dbtest.New(t)

	jwtSvc := services.NewJWTService(db, config.JWTConfig{Secret: "route-secret", ExpiryHours: 1, Issuer: "test", RefreshTokenDays: 1})
	powerSync, err := services.NewPowerSyncService(db, config.PowerSyncConfig{URL: "https://sync.example.com"}, "test")
	require.NoError(t, err)
	store, err := storage.NewLocal(t.TempDir(), "http://localhost:8080/files")
	require.NoError(t, err)

	d := Dependencies{
		Auth:        services.NewAuthService(db, jwtSvc),
		JWT:         jwtSvc,
		PowerSync:   powerSync,
		Users:       services.NewUserManagerService(db, services.NewMailService(config.MailConfig{})),
		Surveys:     services.NewSurveyService(db),
		Communities: services.NewCommunityService(db),
		Dashboard:   services.NewDashboardService(db),
		Public:      services.NewPublicService(db),
		Sync:        services.NewSyncService(db, store),
		Store:       store,
		Hub:         websocket.NewHub([]string{"*"}),
		Limiter:     middleware.NewRateLimiter(),
	}
	router := gin.New()
	RegisterRoutes(router, d)

	app := &testApp{router: router, db: db}
	app.admin = app.login(t, seedUser(t, db, "admin@example.com", models.RoleTypeAdmin))
	app.collector = app.login(t, seedUser(t, db, "collector@example.com", models.RoleTypeCollector))
	return app
}

func seedUser(t *testing.T, db *gorm.DB, email string, roleType models.RoleType) string {
	t.Helper()
	role := &models.Role{
		Name:        string(roleType) + "-role",
		RoleType:    roleType,
		Permissions: models.StringList(models.PermissionsFor(roleType)),
	}
	require.NoError(t, db.Create(role).Error)
	hash, err := utils.HashPassword("Password123")
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.User{
		FullName: "Test " + string(roleType), Email: email, RoleID: role.ID,
		Password: hash, Status: models.UserStatusActive, IsEmailVerified: true,
	}).Error)
	return email
}

func (a *testApp) login(t *testing.T, email string) string {
	t.Helper()
	w := a.do(http.MethodPost, "/auth/login", "", gin.H{"email": email, "password": "Password123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		Data struct {
			AccessToken string `json:"accessToken"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body.Data.AccessToken)
	return body.Data.AccessToken
}

func (a *testApp) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	w := app.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "LOCAL", decode(t, w)["storage"])
}

func TestAuthRoutes(t *testing.T) {
	app := newTestApp(t)

	w := app.do(http.MethodPost, "/auth/login", "", gin.H{"email": "admin@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = app.do(http.MethodGet, "/auth/me", app.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "admin@example.com", data["email"])

	assert.Equal(t, http.StatusOK, app.do(http.MethodGet, "/auth/me/admin", app.admin, nil).Code)
	assert.Equal(t, http.StatusForbidden, app.do(http.MethodGet, "/auth/me/collector", app.admin, nil).Code)
	assert.Equal(t, http.StatusOK, app.do(http.MethodGet, "/auth/me/collector", app.collector, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, app.do(http.MethodGet, "/auth/me", "", nil).Code)

	w = app.do(http.MethodGet, "/auth/powersync/jwks", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["keys"], 1)

	w = app.do(http.MethodGet, "/auth/powersync/token", app.collector, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://sync.example.com", decode(t, w)["powersync_url"])

	w = app.do(http.MethodPost, "/auth/refresh", "", gin.H{"refresh_token": "missing"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUserManagerRoutes(t *testing.T) {
	app := newTestApp(t)

	assert.Equal(t, http.StatusForbidden, app.do(http.MethodGet, "/user-manager/users", app.collector, nil).Code)

	w := app.do(http.MethodGet, "/user-manager/users?page=1&limit=1", app.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode(t, w)["data"].(map[string]interface{})
	meta := page["meta"].(map[string]interface{})
	assert.Equal(t, float64(2), meta["total"])
	assert.Equal(t, true, meta["hasNext"])

	assert.Equal(t, http.StatusBadRequest, app.do(http.MethodGet, "/user-manager/users/not-a-uuid", app.admin, nil).Code)
	assert.Equal(t, http.StatusNotFound,
		app.do(http.MethodGet, "/user-manager/users/6f1f2c0e-0000-4000-8000-000000000000", app.admin, nil).Code)

	w = app.do(http.MethodPost, "/user-manager/users/accept-invitation", "",
		gin.H{"password": "Secret123", "invitationToken": "6f1f2c0e-0000-4000-8000-000000000000"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(http.MethodPost, "/user-manager/roles", app.admin,
		gin.H{"name": "supervisor", "type": "admin", "permissions": []string{models.PermDashboardRead}})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = app.do(http.MethodPost, "/user-manager/roles", app.admin,
		gin.H{"name": "supervisor", "type": "admin", "permissions": []string{models.PermDashboardRead}})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSkillsSurveyRoutes(t *testing.T) {
	app := newTestApp(t)

	survey := gin.H{
		"isComplete": true,
		"basicInformation": gin.H{
			"state": "Kano", "localGovernmentArea": "Dala", "nameOfCommunity": "Rugga", "zone": models.ZoneNorthWest,
		},
		"demographicInformation": gin.H{
			"firstName": "Amina", "lastName": "Bello", "sex": models.SexFemale, "ageRange": "21-25",
			"levelOfEducation": "quranic", "typeOfNomadism": models.NomadismMobile,
		},
	}
	w := app.do(http.MethodPost, "/skills-survey", app.collector, survey)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode(t, w)["data"].(map[string]interface{})["id"].(string)

	assert.Equal(t, http.StatusBadRequest, app.do(http.MethodPost, "/skills-survey", app.collector, gin.H{}).Code)

	w = app.do(http.MethodGet, "/skills-survey?state=kan&sex=female", app.collector, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode(t, w)["data"].(map[string]interface{})
	assert.Len(t, page["data"], 1)

	w = app.do(http.MethodGet, "/skills-survey/stats", app.collector, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["data"].(map[string]interface{})["totalSurveys"])

	// collectors cannot delete
	assert.Equal(t, http.StatusForbidden, app.do(http.MethodDelete, "/skills-survey/"+id, app.collector, nil).Code)
	assert.Equal(t, http.StatusOK, app.do(http.MethodDelete, "/skills-survey/"+id, app.admin, nil).Code)
	assert.Equal(t, http.StatusNotFound, app.do(http.MethodGet, "/skills-survey/"+id, app.admin, nil).Code)
}

func TestSyncRoutes(t *testing.T) {
	app := newTestApp(t)

	tx := `{"crud":[{"type":"skills_survey_submissions","op":"PUT","id":"S1","data":{"is_complete":1}}]}`
	w := app.do(http.MethodPost, "/sync", app.collector, gin.H{"transaction": tx})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	report := decode(t, w)
	assert.Equal(t, true, report["success"])
	assert.Equal(t, float64(1), report["successfulRecords"])

	var sub models.Submission
	require.NoError(t, app.db.First(&sub, "id = ?", "S1").Error)
	assert.True(t, sub.IsComplete)

	w = app.do(http.MethodPost, "/sync", app.collector, gin.H{"something": "else"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(http.MethodPost, "/sync", app.collector, gin.H{
		"crud": []gin.H{{"type": "unknown_table", "op": "PUT", "data": gin.H{"id": "X"}}},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "failure", decode(t, w)["status"])

	w = app.do(http.MethodGet, "/sync/logs", app.collector, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["data"], 2)
}

func TestSyncMalformedOperationIsRejectedAlone(t *testing.T) {
	app := newTestApp(t)

	body := gin.H{"crud": []interface{}{
		gin.H{"type": "skills_survey_submissions", "op": "PUT", "data": gin.H{"id": "S1"}},
		gin.H{"type": "skills_survey_submissions", "op": "PUT", "data": "oops"},
		gin.H{"type": "skills_survey_submissions", "op": "PATCH", "id": 7, "data": gin.H{"is_complete": 1}},
		gin.H{"type": "skills_survey_submissions", "op": "PUT", "data": []int{1}},
		gin.H{"type": "skills_survey_submissions", "op": "PUT", "data": gin.H{"id": "S2"}},
	}}
	w := app.do(http.MethodPost, "/sync", app.collector, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	report := decode(t, w)
	assert.Equal(t, "partial_success", report["status"])
	assert.Equal(t, float64(5), report["totalProcessed"])
	assert.Equal(t, float64(2), report["successfulRecords"])

	rejected := report["rejectedRecords"].([]interface{})
	require.Len(t, rejected, 3)
	for _, r := range rejected {
		entry := r.(map[string]interface{})
		assert.Equal(t, "skills_survey_submissions", entry["table"])
		syncErr := entry["error"].(map[string]interface{})
		assert.Equal(t, "OTHER", syncErr["type"])
		assert.Contains(t, syncErr["message"], "invalid operation")
	}
	assert.Equal(t, "7", rejected[1].(map[string]interface{})["recordId"])

	var count int64
	require.NoError(t, app.db.Model(&models.Submission{}).Where("id IN ?", []string{"S1", "S2"}).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	w = app.do(http.MethodPost, "/sync", app.collector, gin.H{"crud": nil})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSyncMultipartAttachesImage(t *testing.T) {
	app := newTestApp(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("transaction", `{"crud":[
		{"type":"skills_survey_submissions","op":"PUT","data":{"id":"S9"}},
		{"type":"basic_information","op":"PUT","data":{"id":"B9","submission_id":"S9","state":"Niger",
		 "local_government_area":"Bida","name_of_community":"Ruga","image_uri":"photo_b9"}}]}`))
	part, err := mw.CreateFormFile("photo_b9", "b9.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("png-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/sync", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+app.collector)
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(2), decode(t, w)["successfulRecords"])

	var bi models.BasicInformation
	require.NoError(t, app.db.First(&bi, "id = ?", "B9").Error)
	require.NotNil(t, bi.ImageURL)
	assert.Contains(t, *bi.ImageURL, "nomadic/basic-information/B9")
}

func TestAnalyticsRoutes(t *testing.T) {
	app := newTestApp(t)

	assert.Equal(t, http.StatusForbidden, app.do(http.MethodGet, "/dashboard/stats", app.collector, nil).Code)

	w := app.do(http.MethodGet, "/dashboard/stats?state=ALL", app.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["success"])

	assert.Equal(t, http.StatusBadRequest, app.do(http.MethodGet, "/dashboard/lite?zone=atlantis", app.admin, nil).Code)

	w = app.do(http.MethodGet, "/dashboard/states", app.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	states := decode(t, w)["data"].([]interface{})
	assert.Equal(t, "ALL", states[0].(map[string]interface{})["code"])

	for _, path := range []string{"/public/nomadic/summary", "/public/nomadic/demographics", "/public/nomadic/skills", "/public/nomadic/barriers", "/communities/data"} {
		w := app.do(http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, true, decode(t, w)["success"], path)
	}
}

func TestCommunityRoutes(t *testing.T) {
	app := newTestApp(t)

	w := app.do(http.MethodPost, "/communities", app.collector, gin.H{
		"nameOfCommunity": "Rugga Dala", "state": "Kano", "localGovernmentArea": "Dala", "zone": models.ZoneNorthWest,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = app.do(http.MethodPost, "/communities", app.collector, gin.H{"nameOfCommunity": "X", "zone": "nowhere"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(http.MethodGet, "/communities", app.collector, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["data"], 1)
}

func TestStoragePublicURL(t *testing.T) {
	app := newTestApp(t)
	assert.Equal(t, http.StatusBadRequest, app.do(http.MethodGet, "/storage/public-url", "", nil).Code)

	w := app.do(http.MethodGet, "/storage/public-url?path=nomadic/a.jpg", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:8080/files/nomadic/a.jpg", decode(t, w)["url"])
}

func TestLiveFeedRequiresAdmin(t *testing.T) {
	app := newTestApp(t)
	assert.Equal(t, http.StatusUnauthorized, app.do(http.MethodGet, "/ws/sync", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, app.do(http.MethodGet, "/ws/sync?token="+app.collector, "", nil).Code)
}
