package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/ironsheep/particle-size-mcp/internal/analysis"
	"github.com/ironsheep/particle-size-mcp/internal/detection"
	"github.com/ironsheep/particle-size-mcp/internal/imaging"
	"github.com/ironsheep/particle-size-mcp/internal/ocr"
	"github.com/ironsheep/particle-size-mcp/internal/session"
)

// errNoDetection is returned by the statistics tools before particle_detect
// has produced a result for the session's current scale and image.
var errNoDetection = errors.New("no detection result for this session: run particle_detect first")

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "particle_session_open", "particle_detect").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}

	start := time.Now()
	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.log.Warn().Err(err).Str("tool", params.Name).Msg("tool failed")
		return s.errorResponse(req.ID, codeToolFailed, "Tool execution failed", err.Error())
	}
	s.log.Debug().Str("tool", params.Name).Dur("elapsed_ms", time.Since(start)).Msg("tool completed")

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON over the configured defaults
//  2. Looks up the session
//  3. Calls the appropriate imaging/detection/analysis/ocr function
//  4. Stores the new session state, if any, and returns the result
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Session
	case "particle_session_open":
		return s.handleSessionOpen(args)
	case "particle_session_close":
		return s.handleSessionClose(args)

	// Calibration
	case "particle_calibrate_scale":
		return s.handleCalibrateScale(args)
	case "particle_read_data_bar":
		return s.handleReadDataBar(args)

	// Preprocessing
	case "particle_auto_preprocess_params":
		return s.handleAutoPreprocessParams(args)
	case "particle_preprocess":
		return s.handlePreprocess(args)

	// Thresholding
	case "particle_compare_thresholds":
		return s.handleCompareThresholds(args)
	case "particle_threshold_preview":
		return s.handleThresholdPreview(args)

	// Detection
	case "particle_detect":
		return s.handleDetect(args)

	// Statistics
	case "particle_statistics":
		return s.handleStatistics(args)
	case "particle_distribution":
		return s.handleDistribution(args)
	case "particle_histogram":
		return s.handleHistogram(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// decodeArgs unmarshals tool arguments into v. Missing arguments leave v
// unchanged, so callers pre-fill v with defaults.
func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// getSession returns the session named by id.
func (s *Server) getSession(id string) (session.AnalysisSession, error) {
	if id == "" {
		return session.AnalysisSession{}, errors.New("session_id is required")
	}
	return s.sessions.Get(id)
}

// checkExclusion validates a bottom exclusion percentage.
func checkExclusion(pct float64) error {
	if !(pct >= 0 && pct < 100) {
		return fmt.Errorf("%w: bottom exclusion must be in [0, 100), got %g",
			detection.ErrInvalidDetectionParams, pct)
	}
	return nil
}

// === Session Handlers ===

type sessionArgs struct {
	SessionID string `json:"session_id"`
}

type sessionOpenArgs struct {
	Path string `json:"path"`
}

type sessionOpenResult struct {
	SessionID string             `json:"session_id"`
	Path      string             `json:"path"`
	Image     *imaging.ImageInfo `json:"image"`
}

func (s *Server) handleSessionOpen(args json.RawMessage) (interface{}, error) {
	var a sessionOpenArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errors.New("path is required")
	}

	var info *imaging.ImageInfo
	sess, err := s.sessions.Open(a.Path, func(path string) (*image.Gray, error) {
		var err error
		if info, err = imaging.LoadImageInfo(s.cache, path); err != nil {
			return nil, err
		}
		return s.cache.Load(path)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("session", sess.ID).
		Str("path", a.Path).
		Int("width", info.Width).
		Int("height", info.Height).
		Msg("session opened")

	return sessionOpenResult{SessionID: sess.ID, Path: a.Path, Image: info}, nil
}

func (s *Server) handleSessionClose(args json.RawMessage) (interface{}, error) {
	var a sessionArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.SessionID == "" {
		return nil, errors.New("session_id is required")
	}

	// The cached raster is kept while another session still uses the file.
	evicted := false
	sess, err := s.sessions.Close(a.SessionID, func(path string) {
		s.cache.Evict(path)
		evicted = true
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("session", sess.ID).Bool("image_released", evicted).Msg("session closed")
	return map[string]interface{}{
		"session_id":     sess.ID,
		"closed":         true,
		"image_released": evicted,
	}, nil
}

// === Calibration Handlers ===

type calibrateArgs struct {
	SessionID        string   `json:"session_id"`
	PixelLength      *float64 `json:"pixel_length"`
	X1               *int     `json:"x1"`
	Y1               *int     `json:"y1"`
	X2               *int     `json:"x2"`
	Y2               *int     `json:"y2"`
	DisplayScale     float64  `json:"display_scale"`
	PhysicalLengthUm float64  `json:"physical_length_um"`
}

type calibrateResult struct {
	SessionID        string                   `json:"session_id"`
	Scale            imaging.ScaleFactor      `json:"scale_px_per_um"`
	MicrometersPerPx float64                  `json:"um_per_px"`
	Line             *imaging.LineMeasurement `json:"line,omitempty"`
	DetectionCleared bool                     `json:"detection_cleared"`
}

func (s *Server) handleCalibrateScale(args json.RawMessage) (interface{}, error) {
	var a calibrateArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if _, err := s.getSession(a.SessionID); err != nil {
		return nil, err
	}

	var (
		scale imaging.ScaleFactor
		line  *imaging.LineMeasurement
		err   error
	)
	switch {
	case a.X1 != nil && a.Y1 != nil && a.X2 != nil && a.Y2 != nil:
		m := imaging.MeasureLine(imaging.Point{X: *a.X1, Y: *a.Y1}, imaging.Point{X: *a.X2, Y: *a.Y2}, a.DisplayScale)
		line = &m
		scale, err = imaging.CalibrateScale(m.ImageLengthPx, a.PhysicalLengthUm)
	case a.PixelLength != nil:
		scale, err = imaging.CalibrateScale(*a.PixelLength, a.PhysicalLengthUm)
	default:
		return nil, errors.New("either pixel_length or all of x1, y1, x2, y2 is required")
	}
	if err != nil {
		return nil, err
	}

	var cleared bool
	_, err = s.sessions.Update(a.SessionID, func(cur session.AnalysisSession, now time.Time) (session.AnalysisSession, error) {
		cleared = cur.Result != nil
		return cur.WithScale(scale, now), nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("session", a.SessionID).Float64("scale_px_per_um", float64(scale)).Msg("scale calibrated")
	return calibrateResult{
		SessionID:        a.SessionID,
		Scale:            scale,
		MicrometersPerPx: 1 / float64(scale),
		Line:             line,
		DetectionCleared: cleared,
	}, nil
}

type readDataBarArgs struct {
	SessionID              string  `json:"session_id"`
	BottomExclusionPercent float64 `json:"bottom_exclusion_percent"`
	Language               string  `json:"language"`
}

type readDataBarResult struct {
	SessionID string `json:"session_id"`
	*ocr.DataBarReading
}

func (s *Server) handleReadDataBar(args json.RawMessage) (interface{}, error) {
	a := readDataBarArgs{
		BottomExclusionPercent: s.cfg.Detection.BottomExclusionPercent,
		Language:               s.cfg.OCR.Language,
	}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	sess, err := s.getSession(a.SessionID)
	if err != nil {
		return nil, err
	}
	if err := checkExclusion(a.BottomExclusionPercent); err != nil {
		return nil, err
	}

	reading, err := ocr.ReadDataBar(sess.Original, a.BottomExclusionPercent, s.newRecognizer(a.Language))
	if err != nil {
		return nil, err
	}

	ev := s.log.Info().Str("session", sess.ID).Bool("label_found", reading.Label != nil).Bool("bar_found", reading.Bar != nil)
	if reading.Scale.Valid() {
		ev = ev.Float64("suggested_scale_px_per_um", float64(reading.Scale))
	}
	ev.Msg("data bar read")

	return readDataBarResult{SessionID: sess.ID, DataBarReading: reading}, nil
}

// === Preprocessing Handlers ===

type autoPreprocessResult struct {
	SessionID string                      `json:"session_id"`
	Params    imaging.PreprocessingParams `json:"params"`
	Stats     imaging.IntensityStats      `json:"stats"`
}

func (s *Server) handleAutoPreprocessParams(args json.RawMessage) (interface{}, error) {
	var a sessionArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	sess, err := s.getSession(a.SessionID)
	if err != nil {
		return nil, err
	}
	return autoPreprocessResult{
		SessionID: sess.ID,
		Params:    imaging.AutoPreprocessingParams(sess.Original),
		Stats:     imaging.ImageStats(sess.Original),
	}, nil
}

type preprocessArgs struct {
	SessionID string `json:"session_id"`
	imaging.PreprocessingParams
	IncludeImage bool `json:"include_image"`
}

type preprocessResult struct {
	SessionID string                      `json:"session_id"`
	Params    imaging.PreprocessingParams `json:"params"`
	Stats     imaging.IntensityStats      `json:"stats"`
	Image     *imaging.EncodedImage       `json:"image,omitempty"`
}

func (s *Server) handlePreprocess(args json.RawMessage) (interface{}, error) {
	a := preprocessArgs{PreprocessingParams: s.cfg.Preprocessing}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if _, err := s.getSession(a.SessionID); err != nil {
		return nil, err
	}
	if err := a.PreprocessingParams.Validate(); err != nil {
		return nil, err
	}

	sess, err := s.sessions.Update(a.SessionID, func(cur session.AnalysisSession, now time.Time) (session.AnalysisSession, error) {
		processed := imaging.Preprocess(cur.Original, a.PreprocessingParams)
		return cur.WithPreprocessed(a.PreprocessingParams, processed, now), nil
	})
	if err != nil {
		return nil, err
	}

	result := preprocessResult{
		SessionID: sess.ID,
		Params:    a.PreprocessingParams,
		Stats:     imaging.ImageStats(sess.Processed),
	}
	if a.IncludeImage {
		if result.Image, err = imaging.EncodePNG(sess.Processed); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// === Thresholding Handlers ===

type compareThresholdsArgs struct {
	SessionID              string  `json:"session_id"`
	BottomExclusionPercent float64 `json:"bottom_exclusion_percent"`
}

type compareThresholdsResult struct {
	SessionID      string         `json:"session_id"`
	Preprocessed   bool           `json:"preprocessed"`
	AnalyzedPixels int            `json:"analyzed_pixels"`
	Thresholds     map[string]int `json:"thresholds"`
}

func (s *Server) handleCompareThresholds(args json.RawMessage) (interface{}, error) {
	a := compareThresholdsArgs{BottomExclusionPercent: s.cfg.Detection.BottomExclusionPercent}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	sess, err := s.getSession(a.SessionID)
	if err != nil {
		return nil, err
	}
	if err := checkExclusion(a.BottomExclusionPercent); err != nil {
		return nil, err
	}

	img := sess.WorkingImage()
	b := img.Bounds()
	mask := imaging.ROIMask(b.Dy(), b.Dx(), a.BottomExclusionPercent)

	thresholds := make(map[string]int, len(detection.AutoMethods))
	for m, t := range detection.CompareThresholdMethods(imaging.MaskedSamples(img, mask)) {
		thresholds[m.String()] = t
	}
	return compareThresholdsResult{
		SessionID:      sess.ID,
		Preprocessed:   sess.Processed != nil,
		AnalyzedPixels: mask.Count(),
		Thresholds:     thresholds,
	}, nil
}

type thresholdPreviewArgs struct {
	SessionID string `json:"session_id"`
	detection.DetectionParams
}

type thresholdPreviewResult struct {
	SessionID        string                    `json:"session_id"`
	Threshold        int                       `json:"threshold"`
	Method           detection.ThresholdMethod `json:"threshold_method"`
	Polarity         detection.Polarity        `json:"polarity"`
	ForegroundPixels int                       `json:"foreground_pixels"`
	Image            *imaging.EncodedImage     `json:"image"`
}

func (s *Server) handleThresholdPreview(args json.RawMessage) (interface{}, error) {
	a := thresholdPreviewArgs{DetectionParams: s.cfg.Detection}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	sess, err := s.getSession(a.SessionID)
	if err != nil {
		return nil, err
	}
	if err := a.DetectionParams.Validate(); err != nil {
		return nil, err
	}

	img := sess.WorkingImage()
	b := img.Bounds()
	mask := imaging.ROIMask(b.Dy(), b.Dx(), a.BottomExclusionPercent)
	threshold := detection.ResolveThreshold(imaging.MaskedSamples(img, mask), a.ThresholdMethod, a.ManualThreshold)

	preview := detection.BinaryPreview(img, threshold, a.Polarity, mask)
	foreground := 0
	for _, v := range preview.Pix {
		if v != 0 {
			foreground++
		}
	}

	enc, err := imaging.EncodePNG(preview)
	if err != nil {
		return nil, err
	}
	return thresholdPreviewResult{
		SessionID:        sess.ID,
		Threshold:        threshold,
		Method:           a.ThresholdMethod,
		Polarity:         a.Polarity,
		ForegroundPixels: foreground,
		Image:            enc,
	}, nil
}

// === Detection Handlers ===

type detectArgs struct {
	SessionID string `json:"session_id"`
	detection.DetectionParams
	IncludeOverlay *bool `json:"include_overlay"`
}

type detectResult struct {
	SessionID      string                     `json:"session_id"`
	Threshold      int                        `json:"threshold"`
	Method         detection.ThresholdMethod  `json:"threshold_method"`
	Params         detection.DetectionParams  `json:"params"`
	ContoursTraced int                        `json:"contours_traced"`
	Summary        analysis.Summary           `json:"summary"`
	Particles      []detection.ParticleRecord `json:"particles"`
	Overlay        *imaging.EncodedImage      `json:"overlay,omitempty"`
}

func (s *Server) handleDetect(args json.RawMessage) (interface{}, error) {
	a := detectArgs{DetectionParams: s.cfg.Detection}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if _, err := s.getSession(a.SessionID); err != nil {
		return nil, err
	}

	sess, err := s.sessions.Update(a.SessionID, func(cur session.AnalysisSession, now time.Time) (session.AnalysisSession, error) {
		res, err := detection.DetectParticles(cur.WorkingImage(), cur.Scale, a.DetectionParams)
		if err != nil {
			return cur, err
		}
		return cur.WithDetection(a.DetectionParams, res, now), nil
	})
	if err != nil {
		return nil, err
	}

	res := sess.Result
	particles := res.Particles
	if particles == nil {
		particles = []detection.ParticleRecord{}
	}
	result := detectResult{
		SessionID:      sess.ID,
		Threshold:      res.Threshold,
		Method:         res.Method,
		Params:         a.DetectionParams,
		ContoursTraced: res.Segmented,
		Summary:        analysis.Summarize(particles),
		Particles:      particles,
	}
	if a.IncludeOverlay == nil || *a.IncludeOverlay {
		if result.Overlay, err = imaging.EncodePNG(res.Overlay); err != nil {
			return nil, err
		}
	}

	s.log.Info().
		Str("session", sess.ID).
		Str("method", res.Method.String()).
		Int("threshold", res.Threshold).
		Int("contours", res.Segmented).
		Int("particles", len(particles)).
		Msg("detection complete")
	return result, nil
}

// === Statistics Handlers ===

// detectedSession returns a session that holds a detection result.
func (s *Server) detectedSession(id string) (session.AnalysisSession, error) {
	sess, err := s.getSession(id)
	if err != nil {
		return sess, err
	}
	if sess.Result == nil {
		return sess, errNoDetection
	}
	return sess, nil
}

type statisticsArgs struct {
	SessionID string          `json:"session_id"`
	Metric    analysis.Metric `json:"metric"`
}

type statisticsResult struct {
	SessionID string `json:"session_id"`
	analysis.MetricReport
}

func (s *Server) handleStatistics(args json.RawMessage) (interface{}, error) {
	a := statisticsArgs{Metric: analysis.EquivalentDiameter}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	sess, err := s.detectedSession(a.SessionID)
	if err != nil {
		return nil, err
	}
	return statisticsResult{
		SessionID:    sess.ID,
		MetricReport: analysis.Analyze(sess.Particles(), a.Metric),
	}, nil
}

type distributionResult struct {
	SessionID string                    `json:"session_id"`
	Summary   analysis.Summary          `json:"summary"`
	Metrics   map[string]analysis.Stats `json:"metrics"`
}

func (s *Server) handleDistribution(args json.RawMessage) (interface{}, error) {
	var a sessionArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	sess, err := s.detectedSession(a.SessionID)
	if err != nil {
		return nil, err
	}
	records := sess.Particles()
	return distributionResult{
		SessionID: sess.ID,
		Summary:   analysis.Summarize(records),
		Metrics:   analysis.DistributionStats(records),
	}, nil
}

type histogramArgs struct {
	SessionID string          `json:"session_id"`
	Metric    analysis.Metric `json:"metric"`
	Bins      int             `json:"bins"`
	LogScale  bool            `json:"log_scale"`
}

type histogramResult struct {
	SessionID string          `json:"session_id"`
	Metric    analysis.Metric `json:"metric"`
	analysis.HistogramData
}

func (s *Server) handleHistogram(args json.RawMessage) (interface{}, error) {
	a := histogramArgs{Metric: analysis.EquivalentDiameter, Bins: s.cfg.Analysis.HistogramBins}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	sess, err := s.detectedSession(a.SessionID)
	if err != nil {
		return nil, err
	}

	values := analysis.MetricValues(sess.Particles(), a.Metric)
	var h analysis.HistogramData
	if a.LogScale {
		h, err = analysis.LogHistogram(values, a.Bins)
	} else {
		h, err = analysis.Histogram(values, a.Bins)
	}
	if err != nil {
		return nil, err
	}
	return histogramResult{SessionID: sess.ID, Metric: a.Metric, HistogramData: h}, nil
}
