package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/labseries-server/internal/domain"
)

// submitReportRequest is the report submission body. The payload is kept
// raw; the extraction adapter decides its shape.
type submitReportRequest struct {
	ReportType string          `json:"report_type"`
	ReportDate string          `json:"report_date"` // YYYY-MM-DD, optional
	Source     string          `json:"source"`
	Payload    json.RawMessage `json:"payload" binding:"required"`
}

// handleSubmitReport processes one submitted payload for a subject.
func (s *Server) handleSubmitReport(c *gin.Context) {
	subjectID := c.Param("subjectID")

	var req submitReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	source := domain.ObservationSource(req.Source)
	if req.Source == "" {
		source = domain.SourceAIExtraction
	} else if !source.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid source: " + req.Source})
		return
	}

	meta := domain.ReportMeta{
		ReportType: req.ReportType,
		Source:     source,
	}
	if req.ReportDate != "" {
		date, err := time.Parse("2006-01-02", req.ReportDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid report_date, expected YYYY-MM-DD"})
			return
		}
		meta.ReportDate = date
	}

	report, err := s.aggregator.ProcessReport(c.Request.Context(), subjectID, meta, req.Payload)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"subject_id": subjectID,
			"error":      err,
		}).Error("Report processing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process report"})
		return
	}

	c.JSON(http.StatusCreated, report)
}

// handleGetReport returns one report with all its values.
func (s *Server) handleGetReport(c *gin.Context) {
	report, err := s.store.GetReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get report"})
		return
	}
	c.JSON(http.StatusOK, report)
}

// handleListReports returns a subject's reports, newest first.
func (s *Server) handleListReports(c *gin.Context) {
	limit, offset := pagination(c)
	reports, err := s.store.ListReports(c.Request.Context(), c.Param("subjectID"), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list reports"})
		return
	}
	if reports == nil {
		reports = []*domain.Report{}
	}
	c.JSON(http.StatusOK, gin.H{
		"reports": reports,
		"limit":   limit,
		"offset":  offset,
	})
}

// handleGetSeries returns the reconciled chart series for one metric.
func (s *Server) handleGetSeries(c *gin.Context) {
	series, err := s.series.BuildSeries(c.Request.Context(), c.Param("subjectID"), c.Param("metric"))
	if err != nil {
		if errors.Is(err, domain.ErrUnknownMetric) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown metric: " + c.Param("metric")})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build series"})
		return
	}
	c.JSON(http.StatusOK, series)
}

// handleGetScore computes a derived clinical score from latest reconciled
// values. Missing inputs are a 422 naming the absent metrics.
func (s *Server) handleGetScore(c *gin.Context) {
	score, err := s.insights.ComputeScore(c.Request.Context(), c.Param("subjectID"), c.Param("score"))
	if err != nil {
		var insufficient *domain.InsufficientDataError
		switch {
		case errors.As(err, &insufficient):
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   insufficient.Error(),
				"score":   insufficient.Score,
				"missing": insufficient.Missing,
			})
		case errors.Is(err, domain.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error":     "unknown score: " + c.Param("score"),
				"available": s.insights.ScoreNames(),
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute score"})
		}
		return
	}
	c.JSON(http.StatusOK, score)
}

// handleGetTimeline returns a subject's processing audit trail.
func (s *Server) handleGetTimeline(c *gin.Context) {
	if s.timeline == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "timeline store not configured"})
		return
	}

	limit, offset := pagination(c)
	events, err := s.timeline.ListBySubject(c.Request.Context(), c.Param("subjectID"), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list timeline events"})
		return
	}
	if events == nil {
		events = []*domain.TimelineEvent{}
	}
	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"limit":  limit,
		"offset": offset,
	})
}

// handleListMetrics returns the parameter registry contents.
func (s *Server) handleListMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"metrics": s.registry.Parameters()})
}

func pagination(c *gin.Context) (limit, offset int) {
	limit = 50
	offset = 0
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v <= 500 {
		limit = v
	}
	if v, err := strconv.Atoi(c.Query("offset")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}
