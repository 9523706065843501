package validation

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MaxNameLength        = 100
	MaxDescriptionLength = 2000
)

// Project names: letters, digits, spaces and common punctuation.
var projectNameRe = regexp.MustCompile(`^[\p{L}\p{N}\s\-'.,&#()]+$`)

func IsValidProjectName(name string) bool {
	name = strings.TrimSpace(name)
	return name != "" && utf8.RuneCountInString(name) <= MaxNameLength && projectNameRe.MatchString(name)
}

func IsValidDescription(desc string) bool {
	desc = strings.TrimSpace(desc)
	return desc != "" && utf8.RuneCountInString(desc) <= MaxDescriptionLength
}

// IsValidImageURL accepts absolute http(s) and ipfs:// locations.
func IsValidImageURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "http", "https":
		return u.Host != ""
	case "ipfs":
		return u.Host != "" || u.Opaque != "" || u.Path != ""
	}
	return false
}
