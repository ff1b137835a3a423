// Package errors provides the classified error primitives used across synthdata.
//
// Every error that crosses a package boundary is a ClassifiedError carrying a
// category, a severity, a retry strategy and a small context map. Adapters turn
// them into CLI exit codes or HTTP status codes.
//
//	err := errors.GenerationError("anomaly fraction out of range").
//		WithContext("fraction", frac).
//		Build()
//
// Packages declare sentinel values built the same way. Comparisons use
// errors.Is, which matches on category and message, so a sentinel enriched
// with extra context still compares equal to the original.
package errors
