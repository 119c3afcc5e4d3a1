package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shamsucomsoft/onv-ncne-api/logger"
	"github.com/shamsucomsoft/onv-ncne-api/middleware"
	"github.com/shamsucomsoft/onv-ncne-api/models"
	"github.com/shamsucomsoft/onv-ncne-api/services"
)

// RegisterSyncRoutes mounts the offline batch upload and its history.
func RegisterSyncRoutes(router *gin.RouterGroup, svc *services.SyncService) {
	router.POST("", func(c *gin.Context) {
		tx, files, err := readSyncRequest(c)
		if err != nil {
			logger.L().Warn("⚠️ Rejected sync request", zap.String("user_id", currentUserID(c)), zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{
				"success":           false,
				"message":           "No data to sync",
				"error":             err.Error(),
				"totalProcessed":    0,
				"successfulRecords": 0,
			})
			return
		}

		user, _ := middleware.CurrentUser(c)
		report := svc.Process(c.Request.Context(), tx, files, user)
		c.JSON(http.StatusOK, report)
	})

	router.GET("/logs", middleware.RequirePermission(models.PermLogsRead), func(c *gin.Context) {
		user, _ := middleware.CurrentUser(c)
		userID := user.ID
		if user.RoleType() == models.RoleTypeAdmin {
			userID = c.Query("userId")
		}
		limit, _ := strconv.Atoi(c.Query("limit"))
		logs, err := svc.RecentLogs(c.Request.Context(), userID, limit)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, logs, "Sync logs retrieved successfully")
	})
}

// readSyncRequest accepts a multipart form with a transaction field and file
// parts, or a JSON body holding {transaction} or the transaction itself.
func readSyncRequest(c *gin.Context) (*services.SyncTransaction, map[string]*services.Attachment, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		form, err := c.MultipartForm()
		if err != nil {
			return nil, nil, err
		}
		raw := form.Value["transaction"]
		if len(raw) == 0 || strings.TrimSpace(raw[0]) == "" {
			return nil, nil, services.ErrNoTransaction
		}
		tx, err := services.ParseSyncTransaction([]byte(raw[0]))
		if err != nil {
			return nil, nil, err
		}

		files := make(map[string]*services.Attachment, len(form.File))
		for field, headers := range form.File {
			if len(headers) == 0 {
				continue
			}
			h := headers[0]
			f, err := h.Open()
			if err != nil {
				return nil, nil, err
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				return nil, nil, err
			}
			files[field] = &services.Attachment{
				FieldName:   field,
				Filename:    h.Filename,
				ContentType: h.Header.Get("Content-Type"),
				Data:        data,
			}
		}
		return tx, files, nil
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, nil, err
	}
	var envelope struct {
		Transaction json.RawMessage `json:"transaction"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, nil, err
	}
	raw := bytes.TrimSpace(envelope.Transaction)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
		raw = body
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, nil, err
		}
		raw = []byte(s)
	}
	tx, err := services.ParseSyncTransaction(raw)
	return tx, map[string]*services.Attachment{}, err
}
