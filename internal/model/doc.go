// Package model defines the core data structures used throughout HTMLephant.
//
// This package contains the following main types:
//   - Finding: A single heavy-element finding from page analysis
//   - PageAnalysis: The complete weight analysis for one crawled page
//   - AuditReport: The top-level result of auditing one sitemap
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. Multiple packages (analyzer, aggregate, report, database) need
// these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for report output and
// database storage.
package model
