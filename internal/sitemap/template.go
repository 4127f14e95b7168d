package sitemap

import (
	"math/rand"
	"net/url"
	"regexp"
	"strings"
)

// HomepageTemplate is the template key for URLs with an empty path.
const HomepageTemplate = "homepage"

var digitRe = regexp.MustCompile(`\d`)

// TemplateKey reduces a URL to a fingerprint of its path shape. Path
// segments containing digits become {id}, slug-looking segments (hyphens,
// underscores, or very long) become {slug}, short literal names are kept
// lowercase, and file extensions are preserved. URLs with an empty path map
// to the homepage template.
//
//	https://example.com/                      -> homepage
//	https://example.com/products/blue-shirt   -> /products/{slug}
//	https://example.com/blog/2024/my-post     -> /blog/{id}/{slug}
//	https://example.com/about.html            -> /about.html
func TemplateKey(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return HomepageTemplate
	}

	path := strings.Trim(parsed.Path, "/")
	if path == "" {
		return HomepageTemplate
	}

	segments := strings.Split(path, "/")
	parts := make([]string, 0, len(segments))
	for _, segment := range segments {
		name, ext := segment, ""
		if i := strings.LastIndex(segment, "."); i >= 0 {
			name, ext = segment[:i], segment[i+1:]
		}
		name = strings.ToLower(name)

		var part string
		switch {
		case digitRe.MatchString(name):
			part = "{id}"
		case strings.Contains(name, "-") || strings.Contains(name, "_") || len(name) > 20:
			part = "{slug}"
		default:
			part = name
		}

		if ext != "" {
			part += "." + ext
		}
		parts = append(parts, part)
	}
	return "/" + strings.Join(parts, "/")
}

// GroupByTemplate buckets URLs by their template key, preserving the input
// order within each bucket.
func GroupByTemplate(urls []string) map[string][]string {
	groups := make(map[string][]string)
	for _, u := range urls {
		key := TemplateKey(u)
		groups[key] = append(groups[key], u)
	}
	return groups
}

// SelectSamples picks up to perTemplate URLs from each template group. The
// homepage group always includes the site root; when the sitemap does not
// list the root explicitly, baseURL (scheme plus host) supplies it. rng
// drives the random picks so callers can inject a seeded source in tests.
func SelectSamples(groups map[string][]string, perTemplate int, baseURL string, rng *rand.Rand) map[string][]string {
	samples := make(map[string][]string, len(groups))

	for template, urls := range groups {
		if template != HomepageTemplate {
			samples[template] = sample(urls, perTemplate, rng)
			continue
		}

		var selected []string
		rootURL := ""
		for _, u := range urls {
			if parsed, err := url.Parse(u); err == nil && strings.Trim(parsed.Path, "/") == "" {
				rootURL = u
				break
			}
		}
		if rootURL == "" && baseURL != "" {
			rootURL = strings.TrimRight(baseURL, "/") + "/"
		}
		if rootURL != "" {
			selected = append(selected, rootURL)
		}

		var remaining []string
		for _, u := range urls {
			if u != rootURL {
				remaining = append(remaining, u)
			}
		}
		if extra := perTemplate - len(selected); extra > 0 && len(remaining) > 0 {
			selected = append(selected, sample(remaining, extra, rng)...)
		}
		samples[template] = selected
	}
	return samples
}

// sample picks n random elements without replacement. Input order is never
// mutated.
func sample(urls []string, n int, rng *rand.Rand) []string {
	if n >= len(urls) {
		out := make([]string, len(urls))
		copy(out, urls)
		return out
	}
	perm := rng.Perm(len(urls))
	out := make([]string, 0, n)
	for _, idx := range perm[:n] {
		out = append(out, urls[idx])
	}
	return out
}
