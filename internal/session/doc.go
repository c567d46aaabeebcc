// Package session keeps the per-image workflow state between tool calls.
//
// An AnalysisSession ties a loaded micrograph to its scale, preprocessing and
// latest detection result. Sessions are immutable values replaced wholesale
// through Store.Update, so a request that read a session keeps a consistent
// snapshot even if a later request recalibrates or re-detects.
//
// Changing the scale or the working raster discards the detection result;
// callers must run detection again before asking for statistics.
package session
