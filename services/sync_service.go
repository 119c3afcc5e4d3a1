package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shamsucomsoft/onv-ncne-api/logger"
	"github.com/shamsucomsoft/onv-ncne-api/models"
	"github.com/shamsucomsoft/onv-ncne-api/storage"
	"github.com/shamsucomsoft/onv-ncne-api/utils"
)

// Sync operation kinds.
const (
	OpPut    = "PUT"
	OpPatch  = "PATCH"
	OpDelete = "DELETE"
)

// Sync report statuses.
const (
	SyncStatusSuccess        = "success"
	SyncStatusPartialSuccess = "partial_success"
	SyncStatusFailure        = "failure"
)

// CrudOp is one queued client change. Invalid is set when the operation
// could not be decoded; such an operation is rejected on its own.
type CrudOp struct {
	Type    string       `json:"type"`
	Op      string       `json:"op"`
	ID      string       `json:"id,omitempty"`
	Data    utils.Record `json:"data"`
	Invalid error        `json:"-"`
}

// SyncTransaction is the batch uploaded by offline clients.
type SyncTransaction struct {
	Crud []CrudOp `json:"crud"`
}

// ErrNoTransaction means the payload carried no crud list at all.
var ErrNoTransaction = errors.New("no transaction")

// ParseSyncTransaction decodes a batch. Only a payload without a crud list
// fails; each operation is decoded separately so a malformed one does not
// hide the others.
func ParseSyncTransaction(raw []byte) (*SyncTransaction, error) {
	var envelope struct {
		Crud []json.RawMessage `json:"crud"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, err
	}
	if envelope.Crud == nil {
		return nil, ErrNoTransaction
	}

	tx := &SyncTransaction{Crud: make([]CrudOp, 0, len(envelope.Crud))}
	for _, item := range envelope.Crud {
		tx.Crud = append(tx.Crud, decodeCrudOp(item))
	}
	return tx, nil
}

// decodeCrudOp keeps numbers as json.Number so flag and id coercion sees the
// original text.
func decodeCrudOp(raw json.RawMessage) CrudOp {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var op CrudOp
	err := dec.Decode(&op)
	if err == nil {
		return op
	}
	op = CrudOp{Invalid: fmt.Errorf("invalid operation: %w", err)}

	// Keep what can be salvaged for the rejection entry.
	var loose map[string]interface{}
	if json.Unmarshal(raw, &loose) == nil {
		if t, ok := loose["type"].(string); ok {
			op.Type = t
		}
		if id, ok := loose["id"]; ok && id != nil {
			op.ID = fmt.Sprint(id)
		}
	}
	return op
}

// Attachment is an uploaded file part that accompanies a sync batch.
type Attachment struct {
	FieldName   string
	Filename    string
	ContentType string
	Data        []byte
}

// RejectedRecord is one operation that could not be applied.
type RejectedRecord struct {
	Table    string    `json:"table"`
	RecordID string    `json:"recordId"`
	Error    SyncError `json:"error"`
}

// SyncReport summarises a processed batch.
type SyncReport struct {
	Success           bool             `json:"success"`
	Status            string           `json:"status"`
	Message           string           `json:"message"`
	RejectedRecords   []RejectedRecord `json:"rejectedRecords,omitempty"`
	TotalProcessed    int              `json:"totalProcessed"`
	SuccessfulRecords int              `json:"successfulRecords"`
}

// SyncEvent is published after every processed batch.
type SyncEvent struct {
	Event             string    `json:"event"`
	UserID            string    `json:"userId,omitempty"`
	Status            string    `json:"status"`
	TotalProcessed    int       `json:"totalProcessed"`
	SuccessfulRecords int       `json:"successfulRecords"`
	RejectedCount     int       `json:"rejectedCount"`
	Tables            []string  `json:"tables"`
	At                time.Time `json:"at"`
}

// SyncNotifier receives batch outcomes. Implementations must not block for long.
type SyncNotifier interface {
	NotifySync(ctx context.Context, event SyncEvent) error
}

// SyncService applies offline batches record by record.
type SyncService struct {
	db        *gorm.DB
	store     storage.Store
	notifiers []SyncNotifier
	registry  map[string]syncEntity
}

// NewSyncService ignores nil notifiers.
func NewSyncService(db *gorm.DB, store storage.Store, notifiers ...SyncNotifier) *SyncService {
	s := &SyncService{db: db, store: store}
	for _, n := range notifiers {
		if n != nil {
			s.notifiers = append(s.notifiers, n)
		}
	}
	s.registry = s.entities()
	return s
}

// Process applies every operation of tx in order. Failures are collected per
// record; earlier successes are never rolled back.
func (s *SyncService) Process(ctx context.Context, tx *SyncTransaction, files map[string]*Attachment, actor *models.User) *SyncReport {
	actorID := ""
	if actor != nil {
		actorID = actor.ID
	}

	var rejected []RejectedRecord
	tables := make([]string, 0, len(tx.Crud))
	seen := map[string]bool{}
	for _, op := range tx.Crud {
		if !seen[op.Type] {
			seen[op.Type] = true
			tables = append(tables, op.Type)
		}

		recordID, serr := s.applyOp(ctx, op, files, actorID)
		if serr == nil {
			continue
		}
		if recordID == "" {
			recordID = op.Data.ID()
		}
		if recordID == "" {
			recordID = op.ID
		}
		if recordID == "" {
			recordID = "unknown"
		}
		logger.L().Warn("❌ Sync record rejected",
			zap.String("table", op.Type),
			zap.String("record_id", recordID),
			zap.String("type", string(serr.Type)),
			zap.String("message", serr.Message))
		rejected = append(rejected, RejectedRecord{Table: op.Type, RecordID: recordID, Error: *serr})
	}

	report := buildReport(len(tx.Crud), rejected)
	logger.L().Info("✅ Sync batch processed",
		zap.String("user_id", actorID),
		zap.String("status", report.Status),
		zap.Int("total", report.TotalProcessed),
		zap.Int("successful", report.SuccessfulRecords))

	s.recordLog(ctx, actorID, report)
	s.notify(ctx, SyncEvent{
		Event:             "sync_completed",
		UserID:            actorID,
		Status:            report.Status,
		TotalProcessed:    report.TotalProcessed,
		SuccessfulRecords: report.SuccessfulRecords,
		RejectedCount:     len(report.RejectedRecords),
		Tables:            tables,
		At:                time.Now().UTC(),
	})
	return report
}

func buildReport(total int, rejected []RejectedRecord) *SyncReport {
	ok := total - len(rejected)
	r := &SyncReport{
		TotalProcessed:    total,
		SuccessfulRecords: ok,
		RejectedRecords:   rejected,
	}
	switch {
	case len(rejected) == 0:
		r.Success = true
		r.Status = SyncStatusSuccess
		r.Message = fmt.Sprintf("All %d records synced successfully", total)
	case ok > 0:
		r.Status = SyncStatusPartialSuccess
		r.Message = fmt.Sprintf("%d of %d records synced successfully. %d records rejected.", ok, total, len(rejected))
	default:
		r.Status = SyncStatusFailure
		r.Message = fmt.Sprintf("Sync failed. All %d records rejected.", total)
	}
	return r
}

// applyOp returns the id of the record it touched and, on failure, why.
func (s *SyncService) applyOp(ctx context.Context, op CrudOp, files map[string]*Attachment, actorID string) (string, *SyncError) {
	if op.Invalid != nil {
		return "", otherError(op.Invalid.Error())
	}
	if op.Data == nil {
		return "", otherError("No data provided for sync operation")
	}

	entity, ok := s.registry[op.Type]
	if !ok {
		return "", otherError("Unsupported table: " + op.Type)
	}

	var rec utils.Record
	switch op.Op {
	case OpPut:
		rec = copyRecord(op.Data)
		if !rec.Has("id") && op.ID != "" {
			rec["id"] = op.ID
		}
	case OpPatch:
		rec = utils.Record{}
		if op.ID != "" {
			rec["id"] = op.ID
		}
		for k, v := range op.Data {
			rec[k] = v
		}
	case OpDelete:
		return "", otherError("DELETE operations not supported")
	default:
		return "", otherError("Unknown operation: " + op.Op)
	}

	in := bindInput{actorID: actorID, isUpdate: op.Op == OpPatch}
	if op.Type == TableBasicInformation {
		if key, ok := rec.String("image_uri", "imageUrl", "image_url"); ok {
			in.attachment = files[key]
		}
	}

	if in.isUpdate {
		return s.update(ctx, entity, rec, in)
	}
	return s.create(ctx, entity, rec, in)
}

func (s *SyncService) create(ctx context.Context, entity syncEntity, rec utils.Record, in bindInput) (string, *SyncError) {
	b := newBinder(rec)
	row := entity.bind(ctx, s, b, in)
	if b.err != nil {
		serr := ClassifyDatabaseError(b.err)
		return rec.ID(), &serr
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(row).Error; err != nil {
		serr := ClassifyDatabaseError(err)
		return rec.ID(), &serr
	}
	return primaryKey(row), nil
}

// update writes only the columns the record carried, after confirming the
// row exists.
func (s *SyncService) update(ctx context.Context, entity syncEntity, rec utils.Record, in bindInput) (string, *SyncError) {
	id := rec.ID()
	if id == "" {
		return "", otherError("No ID provided for update")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(entity.newModel()).Where("id = ?", id).Count(&count).Error; err != nil {
		serr := ClassifyDatabaseError(err)
		return id, &serr
	}
	if count == 0 {
		return id, otherError(entity.label + " not found")
	}

	b := newBinder(rec)
	row := entity.bind(ctx, s, b, in)
	if b.err != nil {
		serr := ClassifyDatabaseError(b.err)
		return id, &serr
	}

	cols := make([]string, 0, len(b.columns())+1)
	for _, c := range b.columns() {
		if c != "id" {
			cols = append(cols, c)
		}
	}
	cols = append(cols, "updated_at")

	if err := s.db.WithContext(ctx).Model(row).Select(cols).Updates(row).Error; err != nil {
		serr := ClassifyDatabaseError(err)
		return id, &serr
	}
	return id, nil
}

func (s *SyncService) recordLog(ctx context.Context, actorID string, report *SyncReport) {
	entry := models.SyncLog{
		Status:            report.Status,
		TotalProcessed:    report.TotalProcessed,
		SuccessfulRecords: report.SuccessfulRecords,
		RejectedCount:     len(report.RejectedRecords),
	}
	if actorID != "" {
		entry.UserID = &actorID
	}
	if len(report.RejectedRecords) > 0 {
		if raw, err := json.Marshal(report.RejectedRecords); err == nil {
			entry.RejectedRecords = datatypes.JSON(raw)
		}
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		logger.L().Warn("⚠️  Failed to write sync log", zap.Error(err))
	}
}

func (s *SyncService) notify(ctx context.Context, event SyncEvent) {
	for _, n := range s.notifiers {
		if err := n.NotifySync(ctx, event); err != nil {
			logger.L().Warn("⚠️  Sync notifier failed", zap.Error(err))
		}
	}
}

// RecentLogs returns the latest sync batches, newest first.
func (s *SyncService) RecentLogs(ctx context.Context, userID string, limit int) ([]models.SyncLog, error) {
	if limit <= 0 || limit > utils.MaxLimit {
		limit = utils.DefaultLimit
	}
	q := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	var logs []models.SyncLog
	if err := q.Find(&logs).Error; err != nil {
		return nil, utils.Internal("Failed to load sync logs", err)
	}
	return logs, nil
}

func copyRecord(r utils.Record) utils.Record {
	out := make(utils.Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func primaryKey(row interface{}) string {
	switch r := row.(type) {
	case *models.Community:
		return r.ID
	case *models.Submission:
		return r.ID
	case *models.BasicInformation:
		return r.ID
	case *models.DemographicInformation:
		return r.ID
	case *models.CurrentSkills:
		return r.ID
	case *models.SkillsNeed:
		return r.ID
	case *models.DesiredSkills:
		return r.ID
	case *models.PerceptionOfSkills:
		return r.ID
	}
	return ""
}
