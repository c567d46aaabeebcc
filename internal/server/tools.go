package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

var sessionIDProperty = map[string]interface{}{
	"type":        "string",
	"description": "Session ID returned by particle_session_open",
}

var bottomExclusionProperty = map[string]interface{}{
	"type":        "number",
	"description": "Percentage of image height at the bottom (the instrument data bar) excluded from analysis. Default 6.5",
	"minimum":     0,
	"maximum":     100,
}

var metricProperty = map[string]interface{}{
	"type": "string",
	"enum": []string{
		"short_axis_um", "long_axis_um", "mean_diameter_um", "equivalent_diameter_um",
		"area_um2", "circularity", "aspect_ratio",
	},
	"description": "Particle metric to summarize. Default equivalent_diameter_um",
}

var thresholdMethodProperty = map[string]interface{}{
	"type":        "string",
	"enum":        []string{"otsu", "li", "yen", "triangle", "isodata", "manual"},
	"description": "Threshold method. Default otsu",
}

var polarityProperty = map[string]interface{}{
	"type":        "string",
	"enum":        []string{"dark_on_light", "light_on_dark"},
	"description": "Whether particles are darker or lighter than the background. Default dark_on_light",
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Session
		{
			Name:        "particle_session_open",
			Description: "Load an SEM micrograph and open an analysis session. Returns the session ID, dimensions, format and intensity statistics.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file (TIFF, PNG, BMP, JPEG or GIF)",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "particle_session_close",
			Description: "Close an analysis session and release its images.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionIDProperty,
				},
				"required": []string{"session_id"},
			},
		},

		// Calibration
		{
			Name:        "particle_calibrate_scale",
			Description: "Set the session scale in pixels per micrometer from a known length. Give either pixel_length, or the end points x1,y1,x2,y2 of a line drawn along the scale bar. Clears any previous detection result.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionIDProperty,
					"pixel_length": map[string]interface{}{
						"type":        "number",
						"description": "Length of the reference feature in image pixels",
					},
					"x1": map[string]interface{}{
						"type":        "integer",
						"description": "Line start X (display coordinates)",
					},
					"y1": map[string]interface{}{
						"type":        "integer",
						"description": "Line start Y (display coordinates)",
					},
					"x2": map[string]interface{}{
						"type":        "integer",
						"description": "Line end X (display coordinates)",
					},
					"y2": map[string]interface{}{
						"type":        "integer",
						"description": "Line end Y (display coordinates)",
					},
					"display_scale": map[string]interface{}{
						"type":        "number",
						"description": "Image pixels per display pixel for line coordinates. Default 1.0",
						"default":     1.0,
					},
					"physical_length_um": map[string]interface{}{
						"type":        "number",
						"description": "Physical length of the reference feature in micrometers",
					},
				},
				"required": []string{"session_id", "physical_length_um"},
			},
		},
		{
			Name:        "particle_read_data_bar",
			Description: "Read the instrument data bar below the analysis region with OCR. Returns the recognized text, the parsed scale label, the scale bar length in pixels and a suggested scale factor. The session scale is not changed.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id":               sessionIDProperty,
					"bottom_exclusion_percent": bottomExclusionProperty,
					"language": map[string]interface{}{
						"type":        "string",
						"description": "Tesseract language code. Default eng",
					},
				},
				"required": []string{"session_id"},
			},
		},

		// Preprocessing
		{
			Name:        "particle_auto_preprocess_params",
			Description: "Suggest preprocessing parameters from the noise level, intensity percentiles and contrast of the original image.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionIDProperty,
				},
				"required": []string{"session_id"},
			},
		},
		{
			Name:        "particle_preprocess",
			Description: "Apply Gaussian blur, median filter and levels/contrast to the original image and keep the result as the session's working image. Clears any previous detection result.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionIDProperty,
					"gaussian_sigma": map[string]interface{}{
						"type":        "number",
						"description": "Gaussian blur sigma in pixels, 0 disables. Default 1.0",
					},
					"median_kernel": map[string]interface{}{
						"type":        "integer",
						"description": "Median filter size, even sizes round up, 1 disables. Default 3",
					},
					"black_point": map[string]interface{}{
						"type":        "integer",
						"description": "Input level mapped to black (0-255). Default 0",
					},
					"white_point": map[string]interface{}{
						"type":        "integer",
						"description": "Input level mapped to white (0-255). Default 255",
					},
					"contrast": map[string]interface{}{
						"type":        "number",
						"description": "Power-law contrast factor. Default 1.0",
					},
					"include_image": map[string]interface{}{
						"type":        "boolean",
						"description": "Return the preprocessed image as base64 PNG",
						"default":     false,
					},
				},
				"required": []string{"session_id"},
			},
		},

		// Thresholding
		{
			Name:        "particle_compare_thresholds",
			Description: "Compute the Otsu, Li, Yen, Triangle and Isodata thresholds over the analysis region of the working image.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id":               sessionIDProperty,
					"bottom_exclusion_percent": bottomExclusionProperty,
				},
				"required": []string{"session_id"},
			},
		},
		{
			Name:        "particle_threshold_preview",
			Description: "Binarize the working image with a threshold method or manual value and return the foreground mask as base64 PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id":               sessionIDProperty,
					"polarity":                 polarityProperty,
					"bottom_exclusion_percent": bottomExclusionProperty,
					"threshold_method":         thresholdMethodProperty,
					"manual_threshold": map[string]interface{}{
						"type":        "integer",
						"description": "Threshold (0-255) used when threshold_method is manual. Default 128",
					},
				},
				"required": []string{"session_id"},
			},
		},

		// Detection
		{
			Name:        "particle_detect",
			Description: "Detect and measure particles in the working image. Requires a calibrated scale. Returns per-particle measurements in micrometers, the threshold used and an overlay with numbered boundaries.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id":               sessionIDProperty,
					"polarity":                 polarityProperty,
					"bottom_exclusion_percent": bottomExclusionProperty,
					"threshold_method":         thresholdMethodProperty,
					"manual_threshold": map[string]interface{}{
						"type":        "integer",
						"description": "Threshold (0-255) used when threshold_method is manual. Default 128",
					},
					"min_area": map[string]interface{}{
						"type":        "number",
						"description": "Minimum particle area in square pixels. Default 10",
					},
					"max_area": map[string]interface{}{
						"type":        "number",
						"description": "Maximum particle area in square pixels. Default 100000",
					},
					"min_circularity": map[string]interface{}{
						"type":        "number",
						"description": "Minimum circularity 4*pi*area/perimeter^2 (0-1). Default 0.1",
					},
					"include_overlay": map[string]interface{}{
						"type":        "boolean",
						"description": "Return the detection overlay as base64 PNG. Default true",
						"default":     true,
					},
				},
				"required": []string{"session_id"},
			},
		},

		// Statistics
		{
			Name:        "particle_statistics",
			Description: "Summary statistics, D10/D50/D90, span and lognormal fit for one metric of the detected particles.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionIDProperty,
					"metric":     metricProperty,
				},
				"required": []string{"session_id"},
			},
		},
		{
			Name:        "particle_distribution",
			Description: "Statistics for short axis, long axis, mean diameter and equivalent diameter of the detected particles, plus a detection summary.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionIDProperty,
				},
				"required": []string{"session_id"},
			},
		},
		{
			Name:        "particle_histogram",
			Description: "Histogram counts and bin edges for one metric of the detected particles, on a linear or logarithmic axis.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionIDProperty,
					"metric":     metricProperty,
					"bins": map[string]interface{}{
						"type":        "integer",
						"description": "Number of bins. Default 50",
						"minimum":     1,
					},
					"log_scale": map[string]interface{}{
						"type":        "boolean",
						"description": "Use logarithmically spaced bins over the positive values",
						"default":     false,
					},
				},
				"required": []string{"session_id"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
