// Package audio implements the frame-based voice-activity analysis core:
// canonical PCM representation, frame classification, segment merging, and
// unnatural-silence detection over the resulting report.
//
// Analysis operates on canonical audio only: mono 16-bit PCM at a fixed
// sample rate (16 kHz by convention, produced by the transcode package).
// Segmentation is a pure function of the samples, the frame duration, and
// the classifier; it keeps no state across calls, so re-analysing an
// unchanged recording yields an identical report.
package audio
