package sanitize

import (
	"path"
	"regexp"
	"strings"

	"mediagrab/pkg/errors"
)

var (
	illegalChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	multiSpace   = regexp.MustCompile(`\s+`)
	extPattern   = regexp.MustCompile(`^\.[A-Za-z0-9]{1,5}$`)
)

// Folder strips characters that are illegal in filesystem path segments and
// collapses redundant whitespace. Idempotent: Folder(Folder(s)) == Folder(s).
func Folder(title string) string {
	title = illegalChars.ReplaceAllString(title, "")
	title = multiSpace.ReplaceAllString(title, " ")
	return strings.TrimSpace(title)
}

// FilenameAndExt splits a path segment into a sanitized filename and its
// lowercase extension (dot included). Returns a no-extension failure when the
// segment carries no recognizable extension.
func FilenameAndExt(name string) (string, string, error) {
	name = path.Base(name)
	ext := strings.ToLower(path.Ext(name))
	if !extPattern.MatchString(ext) {
		return "", "", errors.NoExtension(name)
	}
	stem := Folder(strings.TrimSuffix(name, path.Ext(name)))
	if stem == "" {
		return "", "", errors.NoExtension(name)
	}
	return stem + ext, ext, nil
}
