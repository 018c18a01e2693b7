package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gonum.org/v1/gonum/mat"

	"gostamp/adapters/excel"
	"gostamp/adapters/stats/ordination"
	"gostamp/app"
	"gostamp/domain/comparison"
	"gostamp/domain/core"
	"gostamp/domain/stats"
	apperrors "gostamp/internal/errors"
	"gostamp/internal/report"
)

// writeError maps domain and application errors to a status and code
func (s *Server) writeError(c *gin.Context, err error) {
	appErr := apperrors.FromDomain(err)
	status := apperrors.HTTPStatus(appErr.Code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: appErr.Error(), Code: appErr.Code})
}

// bind decodes the JSON body, reporting malformed bodies as invalid input
func (s *Server) bind(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		s.writeError(c, core.NewInvalidInputError("body", err.Error()))
		return false
	}
	return true
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleMethods lists estimator descriptors, optionally for one family
func (s *Server) handleMethods(c *gin.Context) {
	reg := s.service.Registry()
	if family := c.Query("family"); family != "" {
		c.JSON(http.StatusOK, gin.H{"methods": reg.DescriptorsByFamily(stats.Family(family))})
		return
	}
	c.JSON(http.StatusOK, gin.H{"methods": reg.Descriptors()})
}

func (s *Server) handleTwoGroupTest(c *gin.Context) {
	var req ObservationRequest
	if !s.bind(c, &req) {
		return
	}
	test, err := s.service.Registry().TwoGroupTest(c.Param("name"), req.Preferences)
	if err != nil {
		s.writeError(c, err)
		return
	}
	result, err := test.HypothesisTest(req.Observation)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleConfidenceInterval(c *gin.Context) {
	var req ObservationRequest
	if !s.bind(c, &req) {
		return
	}
	result, err := s.service.ConfidenceInterval(c.Param("name"), req.Preferences, req.Observation, req.Coverage)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleEffectSize(c *gin.Context) {
	var req ObservationRequest
	if !s.bind(c, &req) {
		return
	}
	filter, err := s.service.Registry().EffectSizeFilter(c.Param("name"), req.Preferences)
	if err != nil {
		s.writeError(c, err)
		return
	}
	effect, err := filter.EffectSize(req.Observation)
	if err != nil {
		s.writeError(c, err)
		return
	}
	passes, err := filter.Passes(req.Observation, req.Threshold)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, EffectSizeResponse{Effect: effect, Passes: passes})
}

func (s *Server) handleCorrection(c *gin.Context) {
	var req CorrectionRequest
	if !s.bind(c, &req) {
		return
	}
	method, err := s.service.Registry().Correction(c.Param("name"), req.Preferences)
	if err != nil {
		s.writeError(c, err)
		return
	}
	corrections, err := method.Correct(req.PValues, req.Alpha)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"corrections": corrections})
}

func (s *Server) handleMultiGroupTest(c *gin.Context) {
	var req GroupsRequest
	if !s.bind(c, &req) {
		return
	}
	test, err := s.service.Registry().MultiGroupTest(c.Param("name"), req.Preferences)
	if err != nil {
		s.writeError(c, err)
		return
	}
	result, err := test.Test(req.Groups)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handlePostHoc(c *gin.Context) {
	var req GroupsRequest
	if !s.bind(c, &req) {
		return
	}
	if req.Alpha == 0 {
		req.Alpha = 0.05
	}
	test, err := s.service.Registry().PostHocTest(c.Param("name"), req.Preferences)
	if err != nil {
		s.writeError(c, err)
		return
	}
	result, err := test.PostHoc(req.Groups, req.Alpha)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func rows(m *mat.Dense) [][]float64 {
	if m == nil {
		return nil
	}
	r, _ := m.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = mat.Row(nil, i, m)
	}
	return out
}

func (s *Server) handlePCA(c *gin.Context) {
	var req PCARequest
	if !s.bind(c, &req) {
		return
	}
	algorithm, err := ordination.ParseAlgorithm(req.Algorithm)
	if err != nil {
		s.writeError(c, err)
		return
	}
	data, err := ordination.FromRows(req.Data)
	if err != nil {
		s.writeError(c, err)
		return
	}
	result, err := ordination.NewPCA(algorithm).Ordinate(data)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, PCAResponse{
		Mean:      result.Mean,
		Variances: result.Variances,
		Positions: rows(result.Positions),
		Loadings:  rows(result.Loadings),
		Note:      result.Note,
	})
}

func (s *Server) handleCompare(c *gin.Context) {
	var req app.TwoGroupRequest
	if !s.bind(c, &req) {
		return
	}
	run, err := s.service.RunTwoGroup(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func (s *Server) handleCompareMultiGroup(c *gin.Context) {
	var req app.MultiGroupRequest
	if !s.bind(c, &req) {
		return
	}
	run, err := s.service.RunMultiGroup(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, core.NewInvalidInputError(key, fmt.Sprintf("%q is not an integer", raw))
	}
	return v, nil
}

func (s *Server) handleListRuns(c *gin.Context) {
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		s.writeError(c, err)
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		s.writeError(c, err)
		return
	}
	runs, err := s.service.ListRuns(c.Request.Context(), limit, offset)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) handleGetRun(c *gin.Context) {
	run, err := s.loadRun(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// handleRunReport renders the run as HTML, or markdown with ?format=markdown
func (s *Server) handleRunReport(c *gin.Context) {
	run, err := s.loadRun(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	opts := report.Options{SignificantOnly: c.Query("significant") == "true"}
	if c.Query("format") == "markdown" {
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", report.Markdown(run, opts))
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", report.HTML(run, opts))
}

func (s *Server) handleRunExport(c *gin.Context) {
	run, err := s.loadRun(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	f, err := excel.NewExporter().Workbook(run)
	if err != nil {
		s.writeError(c, apperrors.ExportError("xlsx", err))
		return
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		s.writeError(c, apperrors.ExportError("xlsx", err))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.xlsx"`, run.ID))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (s *Server) handleFeatureHistory(c *gin.Context) {
	key, err := core.ParseFeatureKey(c.Param("key"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		s.writeError(c, err)
		return
	}
	runs, err := s.service.FeatureHistory(c.Request.Context(), key, limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) loadRun(c *gin.Context) (*comparison.Run, error) {
	id, err := core.ParseRunID(c.Param("id"))
	if err != nil {
		return nil, err
	}
	return s.service.GetRun(c.Request.Context(), id)
}
