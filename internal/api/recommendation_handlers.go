package api

import (
	"net/http"
	"path/filepath"
	"strconv"

	"cropadvisor/adapters/excel"
	"cropadvisor/domain/core"
	"cropadvisor/domain/crop"
	"cropadvisor/internal/recommend"

	"github.com/gin-gonic/gin"
)

type recommendRequest struct {
	crop.ObservationPayload
	FarmerID string `json:"farmer_id"`
}

type batchRequest struct {
	FarmerID     string                    `json:"farmer_id"`
	Observations []crop.ObservationPayload `json:"observations"`
}

func (s *Server) handleHealth(c *gin.Context) {
	// first health check triggers the lazy load
	_, err := s.recommender.Classes(c.Request.Context())
	status := s.recommender.ModelStatus()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "model": status, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "model": status})
}

func (s *Server) handleCrops(c *gin.Context) {
	classes, err := s.recommender.Classes(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"crops": classes, "count": len(classes)})
}

func (s *Server) handleFeatures(c *gin.Context) {
	var payload crop.ObservationPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		s.respondError(c, core.NewInvalidInputError("body", err.Error()))
		return
	}
	obs, err := payload.Observation()
	if err != nil {
		s.respondError(c, err)
		return
	}
	features, err := s.recommender.Engineer(obs)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"observation": obs, "features": features})
}

func (s *Server) handleRecommend(c *gin.Context) {
	var req recommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, core.NewInvalidInputError("body", err.Error()))
		return
	}
	obs, err := req.Observation()
	if err != nil {
		s.respondError(c, err)
		return
	}
	farmerID, err := optionalFarmerID(req.FarmerID)
	if err != nil {
		s.respondError(c, err)
		return
	}

	rec, err := s.recommender.Recommend(c.Request.Context(), recommend.Request{
		Observation: obs,
		FarmerID:    farmerID,
		Source:      crop.SourceAPI,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// handleBatch accepts either a multipart CSV/XLSX upload in field "file" or a
// JSON body with an observations array.
func (s *Server) handleBatch(c *gin.Context) {
	var (
		table    *excel.Table
		farmerID core.FarmerID
		err      error
	)

	if c.ContentType() == "multipart/form-data" {
		farmerID, err = optionalFarmerID(c.PostForm("farmer_id"))
		if err != nil {
			s.respondError(c, err)
			return
		}
		table, err = s.readUpload(c)
	} else {
		var req batchRequest
		if err = c.ShouldBindJSON(&req); err != nil {
			s.respondError(c, core.NewInvalidInputError("body", err.Error()))
			return
		}
		if farmerID, err = optionalFarmerID(req.FarmerID); err != nil {
			s.respondError(c, err)
			return
		}
		table, err = payloadTable(req.Observations, s.maxRows)
	}
	if err != nil {
		s.respondError(c, err)
		return
	}

	report, err := s.recommender.RecommendTable(c.Request.Context(), table, farmerID, crop.SourceBatch)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) readUpload(c *gin.Context) (*excel.Table, error) {
	header, err := c.FormFile("file")
	if err != nil {
		return nil, core.NewInvalidInputError("file", "is required")
	}
	reader, err := excel.NewDataReader(excel.FileTypeOf(header.Filename), s.maxRows)
	if err != nil {
		return nil, core.NewInvalidInputError("file", err.Error())
	}
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	table, err := reader.Read(f)
	if err != nil {
		return nil, core.NewInvalidInputError("file", filepath.Base(header.Filename)+": "+err.Error())
	}
	return table, nil
}

func (s *Server) handleFarmerHistory(c *gin.Context) {
	farmerID, err := core.ParseFarmerID(c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		s.respondError(c, err)
		return
	}
	history, err := s.recommender.History(c.Request.Context(), farmerID, limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"farmer_id": farmerID, "recommendations": history, "count": len(history)})
}

// payloadTable turns JSON observations into table rows so both batch inputs
// share per-row validation. Line numbers are 1-based array positions.
func payloadTable(payloads []crop.ObservationPayload, maxRows int) (*excel.Table, error) {
	if len(payloads) == 0 {
		return nil, core.NewInvalidInputError("observations", "must not be empty")
	}
	if len(payloads) > maxRows {
		return nil, core.NewInvalidInputError("observations", "exceeds "+strconv.Itoa(maxRows)+" rows")
	}
	table := &excel.Table{Headers: crop.ObservationFields, Rows: make([]excel.Row, len(payloads))}
	for i, p := range payloads {
		values := make(map[string]string, len(crop.ObservationFields))
		for j, v := range []*float64{p.Nitrogen, p.Phosphorus, p.Potassium, p.Temperature, p.Humidity, p.PH, p.Rainfall} {
			if v != nil {
				values[crop.ObservationFields[j]] = strconv.FormatFloat(*v, 'g', -1, 64)
			}
		}
		table.Rows[i] = excel.Row{Line: i + 1, Values: values}
	}
	return table, nil
}

func optionalFarmerID(raw string) (core.FarmerID, error) {
	if raw == "" {
		return "", nil
	}
	return core.ParseFarmerID(raw)
}

func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, core.NewInvalidInputError(name, "must be a non-negative integer")
	}
	return n, nil
}
