package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/whatwehaveforlunch/lunch-advisor/internal/domain/auth"
	"github.com/whatwehaveforlunch/lunch-advisor/internal/domain/profile"
	"github.com/whatwehaveforlunch/lunch-advisor/internal/domain/recctx"
	"github.com/whatwehaveforlunch/lunch-advisor/internal/domain/recommend"
	apperrors "github.com/whatwehaveforlunch/lunch-advisor/pkg/errors"
	"github.com/whatwehaveforlunch/lunch-advisor/pkg/util"
)

const defaultMealHistoryDays = 30

// Handler wires the HTTP transport to domain services.
type Handler struct {
	authSvc     auth.Service
	ctxSvc      recctx.Service
	recSvc      recommend.Service
	profileRepo profile.Repository
	logger      *slog.Logger
	now         func() time.Time
}

// NewHandler constructs the root HTTP handler.
func NewHandler(authSvc auth.Service, ctxSvc recctx.Service, recSvc recommend.Service, profileRepo profile.Repository, logger *slog.Logger) *Handler {
	return &Handler{
		authSvc:     authSvc,
		ctxSvc:      ctxSvc,
		recSvc:      recSvc,
		profileRepo: profileRepo,
		logger:      logger.With("component", "http.handler"),
		now:         util.NowUTC,
	}
}

// Register creates a new account.
func (h *Handler) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	view, err := h.authSvc.Register(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, httpErrorFor(err, "register_failed"))
		return
	}
	c.JSON(http.StatusCreated, view)
}

// Login exchanges credentials for a token pair.
func (h *Handler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	resp, err := h.authSvc.Login(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, httpErrorFor(err, "login_failed"))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Refresh exchanges a refresh token for a new token pair.
func (h *Handler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	resp, err := h.authSvc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		abortWithError(c, httpErrorFor(err, "refresh_failed"))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Profile returns the authenticated user's account view.
func (h *Handler) Profile(c *gin.Context) {
	claims, ok := getClaims(c)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing auth claims", nil))
		return
	}
	view, err := h.authSvc.Profile(c.Request.Context(), claims.UserID)
	if err != nil {
		abortWithError(c, httpErrorFor(err, "profile_failed"))
		return
	}
	c.JSON(http.StatusOK, view)
}

// Recommend runs the recommendation pipeline for the authenticated user.
func (h *Handler) Recommend(c *gin.Context) {
	claims, ok := getClaims(c)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing auth claims", nil))
		return
	}
	var body struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
		Accuracy  float64  `json:"accuracy"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	var pos *recctx.Position
	if body.Latitude != nil && body.Longitude != nil {
		pos = &recctx.Position{Latitude: *body.Latitude, Longitude: *body.Longitude, Accuracy: body.Accuracy}
	}

	resp, err := h.recSvc.Recommend(c.Request.Context(), recommend.Request{UserID: claims.UserID, Position: pos})
	if err != nil {
		abortWithError(c, httpErrorFor(err, "recommend_failed"))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Context exposes the generated recommendation context, mainly for debugging
// and the in-app "why these picks" view.
func (h *Handler) Context(c *gin.Context) {
	claims, ok := getClaims(c)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing auth claims", nil))
		return
	}
	pos, err := positionFromQuery(c)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	uctx, err := h.ctxSvc.Generate(c.Request.Context(), claims.UserID, pos)
	if err != nil {
		abortWithError(c, httpErrorFor(err, "context_failed"))
		return
	}
	c.JSON(http.StatusOK, uctx)
}

// SearchRestaurants runs the hard-constraint browse search.
func (h *Handler) SearchRestaurants(c *gin.Context) {
	claims, ok := getClaims(c)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing auth claims", nil))
		return
	}
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "lat must be a number", err))
		return
	}
	lng, err := strconv.ParseFloat(c.Query("lng"), 64)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "lng must be a number", err))
		return
	}
	var radius float64
	if raw := c.Query("radius"); raw != "" {
		if radius, err = strconv.ParseFloat(raw, 64); err != nil {
			abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "radius must be a number", err))
			return
		}
	}
	openNow := c.Query("openNow") == "true"

	results, err := h.recSvc.Search(c.Request.Context(), recommend.SearchQuery{
		UserID:       claims.UserID,
		Latitude:     lat,
		Longitude:    lng,
		RadiusMeters: radius,
		OpenNow:      openNow,
	})
	if err != nil {
		abortWithError(c, httpErrorFor(err, "search_failed"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"restaurants": results})
}

// GetPreferences returns the stored preferences, defaulted when absent or
// malformed.
func (h *Handler) GetPreferences(c *gin.Context) {
	claims, ok := getClaims(c)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing auth claims", nil))
		return
	}
	blob, _, err := h.profileRepo.GetPreferencesBlob(c.Request.Context(), claims.UserID)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "context_error", errMessage(err), err))
		return
	}
	c.JSON(http.StatusOK, profile.DecodePreferences(blob))
}

// PutPreferences replaces the stored preferences.
func (h *Handler) PutPreferences(c *gin.Context) {
	claims, ok := getClaims(c)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing auth claims", nil))
		return
	}
	var prefs profile.UserPreferences
	if err := c.ShouldBindJSON(&prefs); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	// Round-trip through the sanitizer so stored blobs always hold clamped,
	// deduplicated values.
	blob, err := profile.EncodePreferences(prefs)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	sanitized := profile.DecodePreferences(blob)
	if err := h.profileRepo.SavePreferences(c.Request.Context(), claims.UserID, sanitized); err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "context_error", errMessage(err), err))
		return
	}
	c.JSON(http.StatusOK, sanitized)
}

// LogMeal records a meal the user just ate.
func (h *Handler) LogMeal(c *gin.Context) {
	claims, ok := getClaims(c)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing auth claims", nil))
		return
	}
	var body struct {
		MealType string     `json:"mealType"`
		Cost     float64    `json:"cost"`
		Cuisine  *string    `json:"cuisine"`
		EatenAt  *time.Time `json:"eatenAt"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	if body.MealType == "" {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "mealType is required", nil))
		return
	}
	if body.Cost < 0 {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "cost cannot be negative", nil))
		return
	}
	eatenAt := h.now()
	if body.EatenAt != nil {
		eatenAt = body.EatenAt.UTC()
	}
	meal, err := h.profileRepo.InsertMeal(c.Request.Context(), profile.MealRecord{
		ID:       uuid.NewString(),
		UserID:   claims.UserID,
		MealType: body.MealType,
		Cost:     body.Cost,
		Cuisine:  body.Cuisine,
		EatenAt:  eatenAt,
	})
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "context_error", errMessage(err), err))
		return
	}
	c.JSON(http.StatusCreated, meal)
}

// ListMeals returns the user's meals over a trailing window of days.
func (h *Handler) ListMeals(c *gin.Context) {
	claims, ok := getClaims(c)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing auth claims", nil))
		return
	}
	days := defaultMealHistoryDays
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "days must be a positive integer", err))
			return
		}
		days = parsed
	}
	end := h.now()
	start := end.AddDate(0, 0, -days)
	meals, err := h.profileRepo.MealsInRange(c.Request.Context(), claims.UserID, start, end)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "context_error", errMessage(err), err))
		return
	}
	if meals == nil {
		meals = []profile.MealRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"meals": meals})
}

func positionFromQuery(c *gin.Context) (*recctx.Position, error) {
	rawLat, rawLng := c.Query("lat"), c.Query("lng")
	if rawLat == "" && rawLng == "" {
		return nil, nil
	}
	lat, err := strconv.ParseFloat(rawLat, 64)
	if err != nil {
		return nil, err
	}
	lng, err := strconv.ParseFloat(rawLng, 64)
	if err != nil {
		return nil, err
	}
	return &recctx.Position{Latitude: lat, Longitude: lng}, nil
}

// httpErrorFor maps domain error codes onto HTTP statuses.
func httpErrorFor(err error, fallbackCode string) *HTTPError {
	status := http.StatusInternalServerError
	code := fallbackCode
	switch {
	case apperrors.IsCode(err, "invalid_input"):
		status = http.StatusBadRequest
		code = "invalid_request"
	case apperrors.IsCode(err, "invalid_credentials"):
		status = http.StatusUnauthorized
		code = "invalid_credentials"
	case apperrors.IsCode(err, "invalid_token"):
		status = http.StatusUnauthorized
		code = "invalid_token"
	case apperrors.IsCode(err, "email_exists"):
		status = http.StatusConflict
		code = "email_exists"
	case apperrors.IsCode(err, "user_not_found"):
		status = http.StatusNotFound
		code = "user_not_found"
	case apperrors.IsCode(err, "context_error"):
		code = "context_error"
	case apperrors.IsCode(err, "llm_error"):
		status = http.StatusBadGateway
		code = "llm_error"
	case apperrors.IsCode(err, "search_error"):
		status = http.StatusBadGateway
		code = "search_error"
	}
	return NewHTTPError(status, code, errMessage(err), err)
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
