// Package pathutil canonicalizes project file paths and derives metadata
// from file names.
package pathutil

import (
	"mime"
	"path"
	"strings"

	"github.com/devin-clone/core-backend/internal/files/domain"
)

// Normalize canonicalizes p to a forward-slash path with a single leading
// slash and no redundant separators. Paths that escape the project root
// (".." segments) or collapse to the root itself are rejected.
func Normalize(p string) (string, error) {
	p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
	if p == "" {
		return "", domain.ErrInvalidPath
	}

	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", domain.ErrInvalidPath
		}
	}

	cleaned := path.Clean("/" + p)
	if cleaned == "/" || cleaned == "/." {
		return "", domain.ErrInvalidPath
	}
	return cleaned, nil
}

// Base returns the final segment of a normalized path.
func Base(p string) string {
	return path.Base(p)
}

// Dir returns the parent directory of a normalized path ("/" at the root).
func Dir(p string) string {
	return path.Dir(p)
}

// Join appends name under dir and normalizes the result.
func Join(dir, name string) (string, error) {
	return Normalize(path.Join(dir, name))
}

var languageByExt = map[string]string{
	".py":    "python",
	".js":    "javascript",
	".ts":    "typescript",
	".jsx":   "javascript",
	".tsx":   "typescript",
	".java":  "java",
	".cpp":   "cpp",
	".c":     "c",
	".h":     "c",
	".hpp":   "cpp",
	".go":    "go",
	".rs":    "rust",
	".rb":    "ruby",
	".php":   "php",
	".swift": "swift",
	".kt":    "kotlin",
	".scala": "scala",
	".r":     "r",
	".m":     "matlab",
	".jl":    "julia",
	".sh":    "bash",
	".ps1":   "powershell",
	".html":  "html",
	".css":   "css",
	".scss":  "scss",
	".sass":  "sass",
	".less":  "less",
	".xml":   "xml",
	".json":  "json",
	".yaml":  "yaml",
	".yml":   "yaml",
	".md":    "markdown",
	".tex":   "latex",
	".sql":   "sql",
}

// Language detects the programming language from a file name's extension.
// Returns nil for unknown extensions.
func Language(name string) *string {
	ext := strings.ToLower(path.Ext(name))
	if lang, ok := languageByExt[ext]; ok {
		return &lang
	}
	return nil
}

// MimeType guesses a file's media type from its extension. Returns nil when
// the extension is missing or unknown.
func MimeType(name string) *string {
	ext := strings.ToLower(path.Ext(name))
	if ext == "" {
		return nil
	}
	if mt := mime.TypeByExtension(ext); mt != "" {
		return &mt
	}
	return nil
}
