package config

// SiteConfig holds site-specific configuration for a single host.
// This allows customizing audit behavior per site without CLI flags.
type SiteConfig struct {
	// Headers are custom HTTP headers to include in requests to this site
	// (e.g., an auth cookie for a staging environment).
	Headers map[string]string `yaml:"headers,omitempty"`

	// Samples overrides the global per-template sample count for this site.
	// If zero, the global Samples value is used.
	Samples int `yaml:"samples,omitempty"`

	// DelaySeconds overrides the politeness delay between page fetches.
	// If zero, the global CrawlDelay is used.
	DelaySeconds float64 `yaml:"delaySeconds,omitempty"`

	// IgnoreTemplates are URL template keys to skip during sampling
	// (e.g., "/search/{slug}" for pages that are not worth auditing).
	IgnoreTemplates []string `yaml:"ignoreTemplates,omitempty"`
}

// File represents the structure of the .htmlephant configuration file.
type File struct {
	// Sites maps hostnames to their site-specific configurations.
	// Keys should be the bare hostname (e.g., "shop.example.com").
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains default site configuration applied to all sites
	// unless overridden in the site-specific configuration.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for a specific hostname.
// It merges the site-specific configuration with defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults

	if siteConfig, ok := cf.Sites[host]; ok {
		if siteConfig.Samples != 0 {
			result.Samples = siteConfig.Samples
		}
		if siteConfig.DelaySeconds != 0 {
			result.DelaySeconds = siteConfig.DelaySeconds
		}
		if len(siteConfig.Headers) > 0 {
			if result.Headers == nil {
				result.Headers = make(map[string]string)
			}
			for k, v := range siteConfig.Headers {
				result.Headers[k] = v
			}
		}
		if len(siteConfig.IgnoreTemplates) > 0 {
			result.IgnoreTemplates = siteConfig.IgnoreTemplates
		}
	}

	return result
}
