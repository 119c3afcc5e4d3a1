package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shamsucomsoft/onv-ncne-api/models"
	"github.com/shamsucomsoft/onv-ncne-api/storage"
	"github.com/shamsucomsoft/onv-ncne-api/utils"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []SyncEvent
}

func (n *recordingNotifier) NotifySync(ctx context.Context, event SyncEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

type failingNotifier struct{}

func (failingNotifier) NotifySync(ctx context.Context, event SyncEvent) error {
	return errors.New("broker down")
}

// brokenStore fails every write.
type brokenStore struct {
	storage.Store
	saves int
}

func (b *brokenStore) Save(ctx context.Context, key, contentType string, data []byte, metadata map[string]string, vis storage.Visibility) error {
	b.saves++
	return errors.New("bucket unavailable")
}

func newSyncFixture(t *testing.T) (*SyncService, *gorm.DB, *models.User, *storage.LocalStore) {
	t.Helper()
	db := newTestDB(t)
	store, err := storage.NewLocal(t.TempDir(), "/public")
	require.NoError(t, err)
	actor := createUser(t, db, "collector@example.com", "secret-pass", models.RoleTypeCollector)
	return NewSyncService(db, store), db, actor, store
}

func put(table string, data utils.Record) CrudOp {
	return CrudOp{Type: table, Op: OpPut, Data: data}
}

func patch(table, id string, data utils.Record) CrudOp {
	return CrudOp{Type: table, Op: OpPatch, ID: id, Data: data}
}

func TestSyncDuplicateSubmissionIsUniqueViolation(t *testing.T) {
	svc, _, actor, _ := newSyncFixture(t)

	report := svc.Process(context.Background(), &SyncTransaction{Crud: []CrudOp{
		put(TableSubmissions, utils.Record{"id": "S1"}),
		put(TableSubmissions, utils.Record{"id": "S1"}),
	}}, nil, actor)

	assert.False(t, report.Success)
	assert.Equal(t, SyncStatusPartialSuccess, report.Status)
	assert.Equal(t, 2, report.TotalProcessed)
	assert.Equal(t, 1, report.SuccessfulRecords)
	require.Len(t, report.RejectedRecords, 1)
	assert.Equal(t, TableSubmissions, report.RejectedRecords[0].Table)
	assert.Equal(t, "S1", report.RejectedRecords[0].RecordID)
	assert.Equal(t, SyncErrUniqueViolation, report.RejectedRecords[0].Error.Type)
	assert.Equal(t, "1 of 2 records synced successfully. 1 records rejected.", report.Message)
}

func TestSyncCountsAlwaysAddUp(t *testing.T) {
	svc, _, actor, _ := newSyncFixture(t)

	ops := []CrudOp{
		put(TableSubmissions, utils.Record{"id": "S1", "is_complete": 1}),
		{Type: TableSubmissions, Op: OpPut},
		put("payments", utils.Record{"id": "P1"}),
		{Type: TableSubmissions, Op: OpDelete, ID: "S1", Data: utils.Record{}},
		{Type: TableSubmissions, Op: "UPSERT", Data: utils.Record{"id": "S2"}},
		patch(TableSubmissions, "missing", utils.Record{"is_complete": true}),
		put(TableCurrentSkills, utils.Record{"id": "CS1", "submission_id": "S1", "has_skills": "yes"}),
	}
	report := svc.Process(context.Background(), &SyncTransaction{Crud: ops}, nil, actor)

	assert.Equal(t, len(ops), report.TotalProcessed)
	assert.Equal(t, len(ops), report.SuccessfulRecords+len(report.RejectedRecords))
	assert.Equal(t, 2, report.SuccessfulRecords)

	messages := map[string]bool{}
	for _, r := range report.RejectedRecords {
		assert.Equal(t, SyncErrOther, r.Error.Type)
		messages[r.Error.Message] = true
	}
	assert.True(t, messages["No data provided for sync operation"])
	assert.True(t, messages["Unsupported table: payments"])
	assert.True(t, messages["DELETE operations not supported"])
	assert.True(t, messages["Unknown operation: UPSERT"])
	assert.True(t, messages["Submission not found"])
}

func TestSyncAllSucceeded(t *testing.T) {
	svc, db, actor, _ := newSyncFixture(t)

	report := svc.Process(context.Background(), &SyncTransaction{Crud: []CrudOp{
		put(TableCommunities, utils.Record{
			"id": "C1", "name_of_community": "Gidan Ruwa", "state": "Kano",
			"local_government_area": "Dala", "zone": "north-west", "latitude": "12.0",
		}),
		put(TableSubmissions, utils.Record{"id": "S1"}),
		put(TableBasicInformation, utils.Record{
			"id": "BI1", "submission_id": "S1", "community_id": "C1", "state": "Kano",
			"local_government_area": "Dala", "name_of_community": "Gidan Ruwa",
			"date_of_survey": "2024-03-01T10:00:00Z",
		}),
	}}, nil, actor)

	assert.True(t, report.Success)
	assert.Equal(t, SyncStatusSuccess, report.Status)
	assert.Equal(t, "All 3 records synced successfully", report.Message)
	assert.Empty(t, report.RejectedRecords)

	var sub models.Submission
	require.NoError(t, db.First(&sub, "id = ?", "S1").Error)
	require.NotNil(t, sub.SubmittedBy)
	assert.Equal(t, actor.ID, *sub.SubmittedBy)

	var c models.Community
	require.NoError(t, db.First(&c, "id = ?", "C1").Error)
	require.NotNil(t, c.Latitude)
	assert.Equal(t, 12.0, *c.Latitude)

	var log models.SyncLog
	require.NoError(t, db.Order("id DESC").First(&log).Error)
	assert.Equal(t, SyncStatusSuccess, log.Status)
	assert.Equal(t, 3, log.TotalProcessed)
}

func TestSyncAllRejected(t *testing.T) {
	svc, _, actor, _ := newSyncFixture(t)

	report := svc.Process(context.Background(), &SyncTransaction{Crud: []CrudOp{
		put("unknown", utils.Record{}),
	}}, nil, actor)

	assert.False(t, report.Success)
	assert.Equal(t, SyncStatusFailure, report.Status)
	assert.Equal(t, "Sync failed. All 1 records rejected.", report.Message)
	assert.Equal(t, "unknown", report.RejectedRecords[0].RecordID)
}

func TestSyncPatchMissingRecordCreatesNothing(t *testing.T) {
	svc, db, actor, _ := newSyncFixture(t)

	report := svc.Process(context.Background(), &SyncTransaction{Crud: []CrudOp{
		patch(TableDemographicInformation, "D404", utils.Record{"first_name": "Musa"}),
	}}, nil, actor)

	require.Len(t, report.RejectedRecords, 1)
	assert.Equal(t, "Demographic information not found", report.RejectedRecords[0].Error.Message)
	assert.Equal(t, "D404", report.RejectedRecords[0].RecordID)

	var n int64
	db.Model(&models.DemographicInformation{}).Count(&n)
	assert.Zero(t, n)
}

func TestSyncPatchWithoutIDIsRejected(t *testing.T) {
	svc, _, actor, _ := newSyncFixture(t)

	report := svc.Process(context.Background(), &SyncTransaction{Crud: []CrudOp{
		{Type: TableSubmissions, Op: OpPatch, Data: utils.Record{"is_complete": true}},
	}}, nil, actor)

	require.Len(t, report.RejectedRecords, 1)
	assert.Equal(t, "No ID provided for update", report.RejectedRecords[0].Error.Message)
}

func TestSyncPatchOnlyTouchesSuppliedColumns(t *testing.T) {
	svc, db, actor, _ := newSyncFixture(t)
	ctx := context.Background()

	svc.Process(ctx, &SyncTransaction{Crud: []CrudOp{
		put(TableSubmissions, utils.Record{"id": "S1"}),
		put(TableDemographicInformation, utils.Record{
			"id": "D1", "submission_id": "S1", "first_name": "Amina", "last_name": "Bello",
			"sex": "female", "age_range": "16-20", "level_of_education": "fslc",
			"type_of_nomadism": "mobile", "occupation_herding": 1, "phone_number": "0800",
		}),
	}}, nil, actor)

	report := svc.Process(ctx, &SyncTransaction{Crud: []CrudOp{
		patch(TableDemographicInformation, "D1", utils.Record{"first_name": "Aminatu", "occupation_trading": "1"}),
	}}, nil, actor)
	require.True(t, report.Success, report.RejectedRecords)

	var d models.DemographicInformation
	require.NoError(t, db.First(&d, "id = ?", "D1").Error)
	assert.Equal(t, "Aminatu", d.FirstName)
	assert.Equal(t, "Bello", d.LastName)
	assert.True(t, d.OccupationHerding)
	assert.True(t, d.OccupationTrading)
	require.NotNil(t, d.PhoneNumber)
	assert.Equal(t, "0800", *d.PhoneNumber)
}

func TestSyncCoercesNumericFlags(t *testing.T) {
	svc, db, actor, _ := newSyncFixture(t)

	report := svc.Process(context.Background(), &SyncTransaction{Crud: []CrudOp{
		put(TableSubmissions, utils.Record{"id": "S1", "is_complete": float64(1)}),
		put(TableDesiredSkills, utils.Record{
			"id": "DS1", "submission_id": "S1",
			"interested_poultry": float64(1), "interested_ict": float64(0),
			"barrier_insecurity": "1", "barrier_others": true,
		}),
	}}, nil, actor)
	require.True(t, report.Success, report.RejectedRecords)

	var sub models.Submission
	require.NoError(t, db.First(&sub, "id = ?", "S1").Error)
	assert.True(t, sub.IsComplete)

	var ds models.DesiredSkills
	require.NoError(t, db.First(&ds, "id = ?", "DS1").Error)
	assert.True(t, ds.InterestedPoultry)
	assert.False(t, ds.InterestedICT)
	assert.True(t, ds.BarrierInsecurity)
	assert.True(t, ds.BarrierOthers)
	assert.False(t, ds.BarrierFinancialCost)
}

func TestSyncMissingRequiredFieldIsOther(t *testing.T) {
	svc, _, actor, _ := newSyncFixture(t)

	report := svc.Process(context.Background(), &SyncTransaction{Crud: []CrudOp{
		put(TableSubmissions, utils.Record{"id": "S1"}),
		put(TablePerceptionOfSkills, utils.Record{"id": "P1", "submission_id": "S1", "skills_importance_for_development": "5"}),
	}}, nil, actor)

	require.Len(t, report.RejectedRecords, 1)
	rej := report.RejectedRecords[0]
	assert.Equal(t, SyncErrOther, rej.Error.Type)
	assert.Equal(t, "community_skills_support_level", rej.Error.Field)
	assert.Equal(t, "P1", rej.RecordID)
}

func TestSyncMissingSubmissionIsForeignKeyViolation(t *testing.T) {
	svc, _, actor, _ := newSyncFixture(t)

	report := svc.Process(context.Background(), &SyncTransaction{Crud: []CrudOp{
		put(TableSkillsNeed, utils.Record{"id": "SN1", "submission_id": "NOPE", "want_training": "yes"}),
	}}, nil, actor)

	require.Len(t, report.RejectedRecords, 1)
	assert.Equal(t, SyncErrForeignKeyViolation, report.RejectedRecords[0].Error.Type)
	assert.Equal(t, "Referenced data missing or invalid", report.RejectedRecords[0].Error.Message)
}

func TestSyncPersistsBasicInformationImage(t *testing.T) {
	svc, db, actor, store := newSyncFixture(t)

	files := map[string]*Attachment{
		"photo_bi1": {FieldName: "photo_bi1", Filename: "bi1.png", ContentType: "image/png", Data: []byte("png-bytes")},
	}
	report := svc.Process(context.Background(), &SyncTransaction{Crud: []CrudOp{
		put(TableSubmissions, utils.Record{"id": "S1"}),
		put(TableBasicInformation, utils.Record{
			"id": "BI1", "submission_id": "S1", "state": "Niger",
			"local_government_area": "Bida", "name_of_community": "Ruga", "image_uri": "photo_bi1",
		}),
	}}, files, actor)
	require.True(t, report.Success, report.RejectedRecords)

	var bi models.BasicInformation
	require.NoError(t, db.First(&bi, "id = ?", "BI1").Error)
	require.NotNil(t, bi.ImageURL)
	assert.Equal(t, "nomadic/basic-information/BI1.png", *bi.ImageURL)
	assert.False(t, bi.DateOfSurvey.IsZero())

	data, err := os.ReadFile(filepath.Join(store.Root(), "public", "nomadic", "basic-information", "BI1.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)

	obj, err := store.GetWithMetadata(context.Background(), *bi.ImageURL, storage.Public)
	require.NoError(t, err)
	assert.Equal(t, "basic_information", obj.Metadata["ownerType"])
	assert.Equal(t, "mobile-app-multipart", obj.Metadata["syncSource"])
	assert.Equal(t, "9", obj.Metadata["originalSize"])
}

func photoBatch(extra utils.Record) (*SyncTransaction, map[string]*Attachment) {
	bi := utils.Record{
		"id": "BI1", "submission_id": "S1", "state": "Niger",
		"local_government_area": "Bida", "name_of_community": "Ruga", "image_uri": "photo_bi1",
	}
	for k, v := range extra {
		bi[k] = v
	}
	files := map[string]*Attachment{
		"photo_bi1": {FieldName: "photo_bi1", Filename: "bi1.png", ContentType: "image/png", Data: []byte("png-bytes")},
	}
	return &SyncTransaction{Crud: []CrudOp{
		put(TableSubmissions, utils.Record{"id": "S1"}),
		put(TableBasicInformation, bi),
	}}, files
}

func TestSyncImageStorageFailureKeepsRecord(t *testing.T) {
	db := newTestDB(t)
	actor := createUser(t, db, "c@example.com", "secret-pass", models.RoleTypeCollector)
	store := &brokenStore{}
	svc := NewSyncService(db, store)

	tx, files := photoBatch(nil)
	report := svc.Process(context.Background(), tx, files, actor)
	require.True(t, report.Success, report.RejectedRecords)
	assert.Equal(t, 1, store.saves)

	var bi models.BasicInformation
	require.NoError(t, db.First(&bi, "id = ?", "BI1").Error)
	assert.Nil(t, bi.ImageURL)
}

func TestSyncSuppliedImageURLSkipsUpload(t *testing.T) {
	for _, field := range []string{"image_url", "imageUrl"} {
		t.Run(field, func(t *testing.T) {
			svc, db, actor, store := newSyncFixture(t)

			tx, files := photoBatch(utils.Record{field: "https://cdn.example.com/bi1.jpg"})
			report := svc.Process(context.Background(), tx, files, actor)
			require.True(t, report.Success, report.RejectedRecords)

			var bi models.BasicInformation
			require.NoError(t, db.First(&bi, "id = ?", "BI1").Error)
			require.NotNil(t, bi.ImageURL)
			assert.Equal(t, "https://cdn.example.com/bi1.jpg", *bi.ImageURL)

			_, err := os.Stat(filepath.Join(store.Root(), "public", "nomadic", "basic-information", "BI1.png"))
			assert.True(t, os.IsNotExist(err))
		})
	}
}

func TestSyncPatchStampsUpdatedAt(t *testing.T) {
	svc, db, actor, _ := newSyncFixture(t)
	ctx := context.Background()

	svc.Process(ctx, &SyncTransaction{Crud: []CrudOp{put(TableSubmissions, utils.Record{"id": "S1"})}}, nil, actor)
	var before models.Submission
	require.NoError(t, db.First(&before, "id = ?", "S1").Error)

	time.Sleep(20 * time.Millisecond)
	report := svc.Process(ctx, &SyncTransaction{Crud: []CrudOp{
		patch(TableSubmissions, "S1", utils.Record{"is_complete": 1, "created_at": "2020-01-01T00:00:00Z"}),
	}}, nil, actor)
	require.True(t, report.Success, report.RejectedRecords)

	var after models.Submission
	require.NoError(t, db.First(&after, "id = ?", "S1").Error)
	assert.True(t, after.IsComplete)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt), "updated_at %v not after %v", after.UpdatedAt, before.UpdatedAt)
	assert.True(t, after.CreatedAt.Equal(before.CreatedAt), "created_at moved to %v", after.CreatedAt)
}

func TestParseSyncTransaction(t *testing.T) {
	tx, err := ParseSyncTransaction([]byte(`{"crud":[
		{"type":"skills_survey_submissions","op":"PUT","data":{"id":"S1","is_complete":1}},
		{"type":"current_skills","op":"PATCH","id":42,"data":{}},
		"not an object"
	]}`))
	require.NoError(t, err)
	require.Len(t, tx.Crud, 3)

	assert.NoError(t, tx.Crud[0].Invalid)
	assert.Equal(t, json.Number("1"), tx.Crud[0].Data["is_complete"])

	require.Error(t, tx.Crud[1].Invalid)
	assert.Equal(t, TableCurrentSkills, tx.Crud[1].Type)
	assert.Equal(t, "42", tx.Crud[1].ID)
	require.Error(t, tx.Crud[2].Invalid)

	_, err = ParseSyncTransaction([]byte(`{"something":"else"}`))
	assert.ErrorIs(t, err, ErrNoTransaction)
	_, err = ParseSyncTransaction([]byte(`{"crud":[]}`))
	assert.NoError(t, err)
}

func TestSyncNotifiesListeners(t *testing.T) {
	db := newTestDB(t)
	actor := createUser(t, db, "c@example.com", "secret-pass", models.RoleTypeCollector)
	rec := &recordingNotifier{}
	svc := NewSyncService(db, nil, failingNotifier{}, rec)

	svc.Process(context.Background(), &SyncTransaction{Crud: []CrudOp{
		put(TableSubmissions, utils.Record{"id": "S1"}),
		put(TableSubmissions, utils.Record{"id": "S2"}),
	}}, nil, actor)

	require.Len(t, rec.events, 1)
	ev := rec.events[0]
	assert.Equal(t, "sync_completed", ev.Event)
	assert.Equal(t, actor.ID, ev.UserID)
	assert.Equal(t, 2, ev.SuccessfulRecords)
	assert.Equal(t, []string{TableSubmissions}, ev.Tables)

	logs, err := svc.RecentLogs(context.Background(), actor.ID, 5)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestClassifyDatabaseError(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		want  SyncErrorType
		field string
		code  string
	}{
		{"pgx unique", &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}, SyncErrUniqueViolation, "users_email_key", "23505"},
		{"pgx foreign key", &pgconn.PgError{Code: "23503", ColumnName: "submission_id"}, SyncErrForeignKeyViolation, "submission_id", "23503"},
		{"pq unique", &pq.Error{Code: "23505", Column: "id"}, SyncErrUniqueViolation, "id", "23505"},
		{"wrapped pgx", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23503"}), SyncErrForeignKeyViolation, "", "23503"},
		{"gorm duplicated", gorm.ErrDuplicatedKey, SyncErrUniqueViolation, "", ""},
		{"gorm fk", gorm.ErrForeignKeyViolated, SyncErrForeignKeyViolation, "", ""},
		{"sqlite unique", errors.New("UNIQUE constraint failed: communities.id"), SyncErrUniqueViolation, "", ""},
		{"sqlite fk", errors.New("FOREIGN KEY constraint failed"), SyncErrForeignKeyViolation, "", ""},
		{"field", &utils.FieldError{Field: "latitude", Reason: "not a number"}, SyncErrOther, "latitude", ""},
		{"other", errors.New("connection reset"), SyncErrOther, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyDatabaseError(tt.err)
			assert.Equal(t, tt.want, got.Type)
			assert.Equal(t, tt.field, got.Field)
			assert.Equal(t, tt.code, got.Code)
		})
	}

	assert.Equal(t, "connection reset", ClassifyDatabaseError(errors.New("connection reset")).Message)
}
