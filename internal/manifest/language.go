package manifest

import (
	"path/filepath"
	"strings"
)

// langMapping maps a lowercased basename or extension to the fence language
// used by the renderer's markdown code blocks. An empty value means "no
// language hint" (markdown/plain text), which is also what makes a section
// doc-only, grounded on original_source/lg/rendering/lang.py.
var langMapping = map[string]string{
	".py":       "python",
	".java":     "java",
	".js":       "javascript",
	".jsx":      "javascript",
	".ts":       "typescript",
	".tsx":      "typescript",
	".sh":       "bash",
	".bash":     "bash",
	".zsh":      "bash",
	".md":       "",
	".markdown": "",
	".txt":      "",
	".json":     "json",
	".yml":      "yaml",
	".yaml":     "yaml",
	".ini":      "",
	".cfg":      "",
	".toml":     "toml",
	".xml":      "xml",
	".html":     "html",
	".css":      "css",
	".scss":     "scss",
	".go":       "go",
	".rs":       "rust",
	".cpp":      "cpp",
	".c":        "c",
	".h":        "c",
	".sql":      "sql",

	"pyproject.toml":    "toml",
	"pipfile":           "",
	"pom.xml":           "xml",
	"build.gradle":      "groovy",
	"build.gradle.kts":  "kotlin",
	"package.json":      "json",
	"tsconfig.json":     "json",
	"webpack.config.js": "javascript",
	"dockerfile":        "dockerfile",
	"makefile":          "make",
	"readme":            "",
}

// LanguageForFile returns the fence language for path's basename or
// extension, or "" when none is known (including markdown/plain text).
func LanguageForFile(path string) string {
	name := strings.ToLower(filepath.Base(path))
	if lang, ok := langMapping[name]; ok {
		return lang
	}
	ext := strings.ToLower(filepath.Ext(path))
	return langMapping[ext]
}

// IsDocOnly reports whether every file in files carries a markdown/plain
// text (empty) language hint, per original_source's "all files are
// markdown or language-less" rule. An empty manifest is never doc-only.
func IsDocOnly(hints []string) bool {
	if len(hints) == 0 {
		return false
	}
	for _, h := range hints {
		if h != "markdown" && h != "" {
			return false
		}
	}
	return true
}
