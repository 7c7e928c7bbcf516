package plugin

import (
	"strings"

	"github.com/ajranjith/uiaudit/internal/rules"
	"github.com/ajranjith/uiaudit/internal/support"
	"golang.org/x/text/unicode/norm"
)

// CoreName is the name of the plugin carrying the built-in catalogue.
const CoreName = "core"

// Core returns the built-in plugin: the rule catalogue, structure checks, built-in fixers
// and the text normalisation processor for every audited extension.
func Core(version string) Plugin {
	procs := map[string]ProcessorFunc{}
	for _, ext := range []string{".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs", ".css", ".scss", ".html", ".htm", ".json"} {
		procs[ext] = Normalize
	}
	return Plugin{
		Name:        CoreName,
		Version:     version,
		Description: "Next.js, shadcn/ui and Tailwind rule catalogue",
		Rules:       rules.Builtin(),
		Checks:      rules.StructureChecks(),
		Processors:  procs,
		Fixers:      rules.BuiltinFixers(),
		Source:      rules.OriginBuiltin,
	}
}

// Normalize strips a byte order mark, converts CRLF line endings to LF and brings the text
// into Unicode NFC so equivalent sources match the same patterns.
func Normalize(_ string, content string) (string, error) {
	content = string(support.StripBOM([]byte(content)))
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return norm.NFC.String(content), nil
}
