package bunkr

import (
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"mediagrab/pkg/models"
)

const (
	primaryHost = "bunkr.su"

	// listing entry dates look like "14:30:00 05/03/2021", UTC
	dateLayout = "15:04:05 02/01/2006"
)

var (
	// cdnHosts describes the site's CDN edge-node naming scheme
	cdnHosts = regexp.MustCompile(`^(?:(?:(?:media-files|cdn|c|pizza|cdn-burger)[0-9]{0,2})|(?:(?:big-taco-|cdn-pizza|cdn-meatballs|cdn-milkshake)[0-9]{0,2}(?:redir)?))\.bunkr?\.[a-z]{2,3}$`)

	// image CDN hosts serve images from a matching "i<N>." host
	imageHost = regexp.MustCompile(`^cdn(\d*)\.`)
)

// StreamLink rewrites a CDN edge URL into its direct-stream or canonical
// form. Pure function: URLs on unrecognized hosts or without a file
// extension come back unchanged. Images keep their path on an image-serving
// host variant; videos map to /v/<name> and everything else to /d/<name> on
// the primary domain.
func StreamLink(u *url.URL) *url.URL {
	host := strings.ToLower(u.Hostname())
	if !cdnHosts.MatchString(host) {
		return u
	}

	ext := strings.ToLower(path.Ext(u.Path))
	if ext == "" {
		return u
	}
	name := path.Base(u.Path)

	switch models.ClassifyExt(ext) {
	case models.FileTypeImage:
		rewritten := *u
		rewritten.Host = imageHost.ReplaceAllString(host, "i$1.")
		return &rewritten
	case models.FileTypeVideo:
		return &url.URL{Scheme: "https", Host: primaryHost, Path: "/v/" + name}
	default:
		return &url.URL{Scheme: "https", Host: primaryHost, Path: "/d/" + name}
	}
}

// ParseDatetime converts a listing date string to Unix epoch seconds
func ParseDatetime(s string) (int64, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}
