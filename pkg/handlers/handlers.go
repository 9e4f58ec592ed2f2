package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/acolitus/roster-api-go/pkg/auth"
	"github.com/acolitus/roster-api-go/pkg/database"
	"github.com/acolitus/roster-api-go/pkg/jobs"
	"github.com/acolitus/roster-api-go/pkg/models"
	"github.com/acolitus/roster-api-go/pkg/quickfill"
)

// Handler contains dependencies for the route handlers
type Handler struct {
	DB *gorm.DB
}

// AuthMiddleware verifies the JWT token for admin routes
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		// Strip "Bearer " if present
		if len(token) > 7 && token[:7] == "Bearer " {
			token = token[7:]
		}

		claims, err := auth.VerifyToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		c.Set("username", claims.Username)
		c.Next()
	}
}

// APIKeyMiddleware verifies the HMAC-signed API key for scheduling routes
func (h *Handler) APIKeyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("Authorization")
		if key == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "API Key required"})
			c.Abort()
			return
		}

		if len(key) > 7 && key[:7] == "Bearer " {
			key = key[7:]
		}

		name, err := auth.VerifyHMACKey(key)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API Key signature"})
			c.Abort()
			return
		}

		// Track the key without ever storing the key itself.
		var apiKey database.APIKey
		h.DB.Where(database.APIKey{KeyHash: auth.HashKey(key)}).
			FirstOrCreate(&apiKey, database.APIKey{KeyHash: auth.HashKey(key), Name: name})

		c.Set("apiKey", &apiKey)
		c.Next()
	}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates an admin and returns a JWT
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user database.MasterUser
	if err := h.DB.Where("username = ?", req.Username).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := auth.CreateToken(user.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

type generateKeyRequest struct {
	Name string `json:"name" binding:"required"`
}

// GenerateKey creates a new API key. The key is returned once and only its
// hash is stored.
func (h *Handler) GenerateKey(c *gin.Context) {
	var req generateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	key := auth.GenerateHMACKey(req.Name)
	record := database.APIKey{KeyHash: auth.HashKey(key), Name: req.Name}
	if err := h.DB.Create(&record).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Key already exists"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": record.ID, "name": record.Name, "key": key})
}

// ListKeys returns all provisioned API keys
func (h *Handler) ListKeys(c *gin.Context) {
	var keys []database.APIKey
	if err := h.DB.Find(&keys).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, keys)
}

// RevokeKey deletes an API key
func (h *Handler) RevokeKey(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid key id"})
		return
	}
	res := h.DB.Delete(&database.APIKey{}, id)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": res.Error.Error()})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Key not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"revoked": id})
}

type createJobRequest struct {
	ParishID       uint            `json:"parish_id" binding:"required"`
	JobType        string          `json:"job_type"`
	HorizonDays    int             `json:"horizon_days"`
	ForceRepublish bool            `json:"force_republish"`
	Payload        json.RawMessage `json:"payload"`
}

// CreateJob enqueues a scheduling or replacement job. The runner picks it up;
// the API never solves inline.
func (h *Handler) CreateJob(c *gin.Context) {
	var req createJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	jobType := req.JobType
	if jobType == "" {
		jobType = models.JobTypeSchedule
	}
	if jobType != models.JobTypeSchedule && jobType != models.JobTypeReplacement {
		c.JSON(http.StatusBadRequest, gin.H{"error": "job_type must be schedule or replacement"})
		return
	}
	if jobType == models.JobTypeReplacement {
		var payload jobs.ReplacementPayload
		if err := json.Unmarshal(req.Payload, &payload); err != nil || len(payload.SlotIDs) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "replacement jobs need payload.slot_ids"})
			return
		}
	}

	var parish models.Parish
	if err := h.DB.First(&parish, req.ParishID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Parish not found"})
		return
	}

	job := models.ScheduleJob{
		PublicID:       uuid.NewString(),
		ParishID:       req.ParishID,
		JobType:        jobType,
		Status:         models.JobPending,
		HorizonDays:    req.HorizonDays,
		ForceRepublish: req.ForceRepublish,
		PayloadJSON:    string(req.Payload),
	}
	if err := h.DB.Create(&job).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, job)
}

// GetJob returns a job's status and summary by public id
func (h *Handler) GetJob(c *gin.Context) {
	var job models.ScheduleJob
	if err := h.DB.Where("public_id = ?", c.Param("id")).First(&job).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}
	c.JSON(http.StatusOK, job)
}

// RunJobs processes every pending job synchronously. Intended for setups
// without a separate runner process.
func (h *Handler) RunJobs(c *gin.Context) {
	if err := jobs.RunPending(h.DB, time.Now()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "done"})
}

// SlotSuggestions returns ranked replacement candidates for one slot
func (h *Handler) SlotSuggestions(c *gin.Context) {
	slotID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid slot id"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	suggestions, err := quickfill.Suggest(h.DB, uint(slotID), limit, nil, time.Now())
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"slot_id": slotID, "suggestions": suggestions})
}
