package feed

import (
	"html"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

// Run normalizes links and keeps the ones that point at an image and pass the
// source's filter rules. Order is preserved.
func (f *Filterer) Run(links []Link, sourceConfig *Config) []Link {
	kept := make([]Link, 0, len(links))
	for _, link := range links {
		link = Normalize(link)

		if !IsImageURL(link.URL) {
			continue
		}

		if isFiltered, reason := f.applyFilters(link, sourceConfig.Filters); isFiltered {
			slog.Debug("Link filtered", "url", link.URL, "reason", reason)
			continue
		}

		kept = append(kept, link)
	}

	return kept
}

// IsImageURL reports whether the URL path ends with a known image extension.
func IsImageURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	return imageExtensions[strings.ToLower(path.Ext(u.Path))]
}

// Normalize undoes the HTML escaping the listing API applies to text fields and
// canonicalizes the title.
func Normalize(link Link) Link {
	title := html.UnescapeString(link.Title)
	title = strings.Join(strings.Fields(title), " ")

	return Link{
		Title: norm.NFC.String(title),
		URL:   strings.TrimSpace(html.UnescapeString(link.URL)),
	}
}

func (f *Filterer) applyFilters(link Link, filters []ConfigFilter) (bool, string) {
	for _, filter := range filters {
		value := f.getFieldValue(link, filter.Field)

		for _, exclude := range filter.Excludes {
			if f.matchesFilter(value, exclude) {
				return true, "excluded by " + filter.Field + " filter: contains '" + exclude + "'"
			}
		}

		if len(filter.Includes) > 0 {
			matched := false
			for _, include := range filter.Includes {
				if f.matchesFilter(value, include) {
					matched = true
					break
				}
			}
			if !matched {
				return true, "excluded by " + filter.Field + " filter: no include rule matched"
			}
		}
	}

	return false, ""
}

func (f *Filterer) matchesFilter(value, pattern string) bool {
	return strings.Contains(strings.ToLower(value), strings.ToLower(pattern))
}

func (f *Filterer) getFieldValue(link Link, field string) string {
	switch field {
	case "title":
		return link.Title
	case "url":
		return link.URL
	default:
		return ""
	}
}
