// Package config provides configuration structures and utilities for
// HTMLephant. It defines the main options for sitemap auditing, crawling
// settings, and report generation preferences.
package config
