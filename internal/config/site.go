package config

// SiteConfig holds site-specific configuration for a single website.
// This allows customizing crawl and extraction behavior per site.
type SiteConfig struct {
	// Seed is the URL the crawl starts from. If empty, "https://<site>/" is used.
	Seed string `yaml:"seed,omitempty"`

	// Domain overrides the host that links must match to be followed.
	Domain string `yaml:"domain,omitempty"`

	// CorpusPath is the corpus output file for this site.
	CorpusPath string `yaml:"corpusPath,omitempty"`

	// Cookie is an HTTP cookie to use when crawling this site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers to include in requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Depth overrides the global max depth for this site.
	// If zero, the global MaxDepth is used.
	Depth int `yaml:"depth,omitempty"`

	// MinContentLength overrides the cleaned-text threshold for this site.
	MinContentLength int `yaml:"minContentLength,omitempty"`

	// IgnorePatterns are URL patterns to skip during crawling.
	// Patterns are matched against the URL path using glob syntax ("/tag/**").
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns are URL patterns to follow during crawling.
	// If specified, only URLs matching these patterns are crawled.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`

	// BoilerplateSelectors replace the default selector list for this site.
	BoilerplateSelectors []string `yaml:"boilerplateSelectors,omitempty"`

	// BoilerplatePhrases replace the default phrase denylist for this site.
	BoilerplatePhrases []string `yaml:"boilerplatePhrases,omitempty"`
}

// File represents the structure of the .sitecorpus configuration file.
type File struct {
	// Sites maps site names to their site-specific configurations.
	// Keys are host names without the scheme (e.g., "example.com").
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains default site configuration applied to all sites
	// unless overridden in the site-specific configuration.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for a specific site.
// It merges the site-specific configuration with defaults.
func (cf *File) GetSiteConfig(site string) SiteConfig {
	result := cf.Defaults

	// Defaults never carry a seed, domain or corpus path: those identify a site.
	result.Seed = ""
	result.Domain = ""
	result.CorpusPath = ""

	siteConfig, ok := cf.Sites[site]
	if !ok {
		return result
	}

	if siteConfig.Seed != "" {
		result.Seed = siteConfig.Seed
	}
	if siteConfig.Domain != "" {
		result.Domain = siteConfig.Domain
	}
	if siteConfig.CorpusPath != "" {
		result.CorpusPath = siteConfig.CorpusPath
	}
	if siteConfig.Cookie != "" {
		result.Cookie = siteConfig.Cookie
	}
	if siteConfig.Depth != 0 {
		result.Depth = siteConfig.Depth
	}
	if siteConfig.MinContentLength != 0 {
		result.MinContentLength = siteConfig.MinContentLength
	}
	if len(siteConfig.Headers) > 0 {
		merged := make(map[string]string, len(result.Headers)+len(siteConfig.Headers))
		for k, v := range result.Headers {
			merged[k] = v
		}
		for k, v := range siteConfig.Headers {
			merged[k] = v
		}
		result.Headers = merged
	}
	if len(siteConfig.IgnorePatterns) > 0 {
		result.IgnorePatterns = siteConfig.IgnorePatterns
	}
	if len(siteConfig.FollowPatterns) > 0 {
		result.FollowPatterns = siteConfig.FollowPatterns
	}
	if len(siteConfig.BoilerplateSelectors) > 0 {
		result.BoilerplateSelectors = siteConfig.BoilerplateSelectors
	}
	if len(siteConfig.BoilerplatePhrases) > 0 {
		result.BoilerplatePhrases = siteConfig.BoilerplatePhrases
	}

	return result
}
