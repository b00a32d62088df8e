package api

import (
	"net/http"
	"strconv"

	"goviper/app"
	"goviper/domain/activity"
	"goviper/domain/core"
	"goviper/internal"
	"goviper/internal/errors"
	"goviper/internal/report"
	"goviper/ports"

	"github.com/gin-gonic/gin"
)

const defaultTop = 10

// ActivityHandler serves activity runs over HTTP
type ActivityHandler struct {
	service  *app.ActivityService
	repo     ports.ActivityRepository
	defaults activity.Options
	logger   *internal.Logger
}

// NewActivityHandler creates a new activity handler. repo may be nil, which
// disables the run listing endpoints.
func NewActivityHandler(service *app.ActivityService, repo ports.ActivityRepository, defaults activity.Options, logger *internal.Logger) *ActivityHandler {
	return &ActivityHandler{
		service:  service,
		repo:     repo,
		defaults: defaults,
		logger:   logger.OrDefault().With("api"),
	}
}

// NewRouter registers the activity routes on a gin engine
func NewRouter(h *ActivityHandler) *gin.Engine {
	router := gin.Default()
	router.GET("/health", h.Health)

	api := router.Group("/api")
	{
		api.POST("/activity", h.RunActivity)
		api.GET("/runs", h.ListRuns)
		api.GET("/runs/:id", h.GetRun)
	}
	return router
}

// Health reports liveness
func (h *ActivityHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "persistence": h.repo != nil})
}

// RunActivity infers regulator activity for the posted signature and network
func (h *ActivityHandler) RunActivity(c *gin.Context) {
	payload := ActivityPayload{Options: h.defaults}
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.respondError(c, errors.InvalidInput("invalid request body: "+err.Error()))
		return
	}

	req := app.ActivityRequest{Options: payload.Options}
	var err error
	if req.Signature, err = payload.Signature.Matrix(); err != nil {
		h.respondError(c, errors.Wrap(err, "signature"))
		return
	}
	if req.Network, err = payload.Network.Network(); err != nil {
		h.respondError(c, errors.Wrap(err, "network"))
		return
	}
	if payload.Null != nil {
		if req.Null, err = payload.Null.Matrix(); err != nil {
			h.respondError(c, errors.Wrap(err, "null model"))
			return
		}
	}
	if payload.Weights != nil {
		if req.Weights, err = payload.Weights.Matrix(); err != nil {
			h.respondError(c, errors.Wrap(err, "weights"))
			return
		}
	}

	run, err := h.service.Run(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, errors.Wrap(err, "activity run failed"))
		return
	}

	resp := ActivityResponse{Run: run, Scores: run.Scores()}
	top := payload.Top
	if top <= 0 {
		top = defaultTop
	}
	switch payload.Report {
	case "":
	case "markdown":
		resp.Report = report.Markdown(run, top)
	case "html":
		resp.Report = string(report.HTML(run, top))
	default:
		h.respondError(c, errors.InvalidInput("unknown report format "+payload.Report))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListRuns returns the most recent stored runs
func (h *ActivityHandler) ListRuns(c *gin.Context) {
	if h.repo == nil {
		h.respondError(c, errors.NotFound("run storage"))
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 0 {
		h.respondError(c, errors.InvalidInput("limit must be a non-negative integer"))
		return
	}
	runs, err := h.repo.ListRuns(c.Request.Context(), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// GetRun returns one stored run with its scores
func (h *ActivityHandler) GetRun(c *gin.Context) {
	if h.repo == nil {
		h.respondError(c, errors.NotFound("run storage"))
		return
	}
	id, err := core.ParseRunID(c.Param("id"))
	if err != nil {
		h.respondError(c, errors.InvalidInput("invalid run ID"))
		return
	}
	summary, scores, err := h.repo.GetRunScores(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, RunResponse{Summary: summary, Scores: scores})
}

func (h *ActivityHandler) respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	if !errors.IsAppError(err) {
		code = errors.Classify(err)
	}
	status := errors.HTTPStatus(code)
	if status >= http.StatusInternalServerError {
		h.logger.Error("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}
