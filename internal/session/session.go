package session

import (
	"image"
	"time"

	"github.com/ironsheep/particle-size-mcp/internal/detection"
	"github.com/ironsheep/particle-size-mcp/internal/imaging"
)

// AnalysisSession is the workflow state of one micrograph: the loaded raster,
// the calibrated scale, the preprocessing that was applied and the latest
// detection result.
//
// A session is an immutable value. The With* methods return an updated copy
// and never modify the receiver, so a session read from a Store can be used
// while another request replaces it.
type AnalysisSession struct {
	ID   string `json:"id"`
	Path string `json:"path"`

	// Original is the grayscale raster as loaded.
	Original *image.Gray `json:"-"`

	// Processed is the preprocessed raster, nil until Preprocess has run.
	Processed *image.Gray `json:"-"`

	// Scale is 0 until the session is calibrated.
	Scale imaging.ScaleFactor `json:"scale_px_per_um"`

	Preprocessing *imaging.PreprocessingParams `json:"preprocessing,omitempty"`
	Detection     *detection.DetectionParams   `json:"detection,omitempty"`

	// Result is the latest detection output. It is cleared whenever the
	// scale or the working raster changes, since its records would be stale.
	Result *detection.Result `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New returns a session for a freshly loaded raster.
func New(id, path string, img *image.Gray, now time.Time) AnalysisSession {
	return AnalysisSession{
		ID:        id,
		Path:      path,
		Original:  img,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// HasScale reports whether the session carries a usable scale factor.
func (s AnalysisSession) HasScale() bool {
	return s.Scale.Valid()
}

// WorkingImage returns the raster detection runs on: the preprocessed image
// when there is one, otherwise the original.
func (s AnalysisSession) WorkingImage() *image.Gray {
	if s.Processed != nil {
		return s.Processed
	}
	return s.Original
}

// Particles returns the records of the latest detection, or nil.
func (s AnalysisSession) Particles() []detection.ParticleRecord {
	if s.Result == nil {
		return nil
	}
	return s.Result.Particles
}

// WithScale returns a copy calibrated to scale. Any detection result is
// dropped because its physical units no longer apply.
func (s AnalysisSession) WithScale(scale imaging.ScaleFactor, now time.Time) AnalysisSession {
	s.Scale = scale
	s.Result = nil
	s.UpdatedAt = now
	return s
}

// WithPreprocessed returns a copy whose working raster is img, produced with
// params. Any detection result is dropped.
func (s AnalysisSession) WithPreprocessed(params imaging.PreprocessingParams, img *image.Gray, now time.Time) AnalysisSession {
	s.Preprocessing = &params
	s.Processed = img
	s.Result = nil
	s.UpdatedAt = now
	return s
}

// WithDetection returns a copy holding a detection result and the
// parameters that produced it.
func (s AnalysisSession) WithDetection(params detection.DetectionParams, result *detection.Result, now time.Time) AnalysisSession {
	s.Detection = &params
	s.Result = result
	s.UpdatedAt = now
	return s
}
