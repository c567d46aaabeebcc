// Package server implements the MCP (Model Context Protocol) server for SEM
// particle size analysis.
//
// This package provides a JSON-RPC 2.0 server that exposes the particle
// analysis workflow through the MCP protocol. A client opens a session on a
// micrograph, calibrates its scale, optionally preprocesses it, detects
// particles and then queries size statistics.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - notifications/initialized: Client acknowledgment (no response)
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Session:
//   - particle_session_open: Load a micrograph, returns the session ID
//   - particle_session_close: Release a session
//
// Calibration:
//   - particle_calibrate_scale: Pixels per micrometer from a known length
//   - particle_read_data_bar: OCR the data bar and suggest a scale
//
// Preprocessing:
//   - particle_auto_preprocess_params: Suggest blur, median and levels
//   - particle_preprocess: Apply them and keep the working image
//
// Thresholding:
//   - particle_compare_thresholds: Otsu, Li, Yen, Triangle and Isodata
//   - particle_threshold_preview: Binary mask for one method or value
//
// Detection:
//   - particle_detect: Segment, filter and measure particles
//
// Statistics:
//   - particle_statistics: Stats, D-values and lognormal fit of one metric
//   - particle_distribution: Stats of the four size metrics
//   - particle_histogram: Linear or logarithmic histogram of one metric
//
// # Sessions
//
// Each session keeps its original raster, the preprocessed raster, the scale
// factor and the latest detection result. Changing the scale or the working
// image drops the detection result, so statistics always describe the
// current state. Rasters are loaded through a shared ImageCache keyed by
// path; a file's raster is evicted when its last session closes.
//
// # Defaults
//
// Tool arguments that are omitted take their values from config.Config,
// which in turn reads PARTICLE_MCP_CONFIG and the PARTICLE_MCP_* environment.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	srv := server.New(cfg, logger.New(os.Stderr, zerolog.InfoLevel))
//	return srv.Run()
package server
