package llmstruct

import "sort"

// LanguageConfig describes one target format: the family it belongs to, the
// keywords used for code-likeness scoring, and the comment syntax renderers
// use to wrap prose around code fragments.
//
// BlockCommentOpen/Close are set only for formats without a line comment
// (CSS, HTML).
type LanguageConfig struct {
	Family            Family
	Keywords          []string
	LineComment       string
	BlockCommentOpen  string
	BlockCommentClose string
	FileExtension     string
}

// LanguageTable is the immutable per-format configuration shared by the
// analyzer and the renderers. Construct it once at process start with
// [DefaultLanguageTable] and pass it by reference; there is no mutation path
// after construction.
type LanguageTable struct {
	configs map[Format]LanguageConfig
}

// Lookup returns the configuration for a format tag.
func (t *LanguageTable) Lookup(format Format) (LanguageConfig, bool) {
	cfg, ok := t.configs[format]
	return cfg, ok
}

// Family returns the family of a format tag, or FamilyNone for plaintext and
// unknown tags.
func (t *LanguageTable) Family(format Format) Family {
	return t.configs[format].Family
}

// Formats returns the format tags belonging to a family, sorted for
// deterministic iteration.
func (t *LanguageTable) Formats(family Family) []Format {
	var out []Format
	for f, cfg := range t.configs {
		if cfg.Family == family {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// All returns every configured format tag, sorted.
func (t *LanguageTable) All() []Format {
	out := make([]Format, 0, len(t.configs))
	for f := range t.configs {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

var defaultTable = &LanguageTable{configs: map[Format]LanguageConfig{
	FormatJSON: {
		Family:        FamilyData,
		FileExtension: ".json",
	},
	FormatYAML: {
		Family:        FamilyData,
		LineComment:   "#",
		FileExtension: ".yaml",
	},
	FormatHTML: {
		Family:            FamilyMarkup,
		Keywords:          []string{"html", "head", "body", "div", "p", "span", "a", "table", "tr", "td", "th", "ul", "ol", "li", "form", "input"},
		BlockCommentOpen:  "<!--",
		BlockCommentClose: "-->",
		FileExtension:     ".html",
	},
	FormatXML: {
		Family:            FamilyMarkup,
		BlockCommentOpen:  "<!--",
		BlockCommentClose: "-->",
		FileExtension:     ".xml",
	},
	FormatPython: {
		Family:        FamilyScripting,
		Keywords:      []string{"def", "class", "import", "for", "while", "if", "else", "try", "except", "finally", "return", "with", "lambda", "yield"},
		LineComment:   "#",
		FileExtension: ".py",
	},
	FormatJavaScript: {
		Family:        FamilyScripting,
		Keywords:      []string{"const", "let", "var", "function", "if", "else", "for", "while", "return", "new", "class", "this", "try", "catch"},
		LineComment:   "//",
		FileExtension: ".js",
	},
	FormatTypeScript: {
		Family:        FamilyScripting,
		Keywords:      []string{"const", "let", "function", "interface", "type", "if", "else", "for", "while", "return", "class", "try", "catch"},
		LineComment:   "//",
		FileExtension: ".ts",
	},
	FormatRuby: {
		Family:        FamilyScripting,
		Keywords:      []string{"def", "class", "module", "if", "else", "unless", "while", "do", "end", "return", "require", "puts"},
		LineComment:   "#",
		FileExtension: ".rb",
	},
	FormatPHP: {
		Family:        FamilyScripting,
		Keywords:      []string{"<?php", "echo", "if", "else", "elseif", "while", "foreach", "function", "class", "return"},
		LineComment:   "//",
		FileExtension: ".php",
	},
	FormatBash: {
		Family:        FamilyScripting,
		Keywords:      []string{"if", "then", "else", "fi", "for", "do", "done", "while", "case", "esac", "function", "echo"},
		LineComment:   "#",
		FileExtension: ".sh",
	},
	FormatR: {
		Family:        FamilyScripting,
		Keywords:      []string{"if", "else", "for", "while", "repeat", "function", "return", "<-", "TRUE", "FALSE", "NULL"},
		LineComment:   "#",
		FileExtension: ".r",
	},
	FormatJava: {
		Family:        FamilyImperative,
		Keywords:      []string{"public", "class", "static", "void", "int", "String", "if", "else", "for", "while", "try", "catch", "return", "new", "import", "package"},
		LineComment:   "//",
		FileExtension: ".java",
	},
	FormatC: {
		Family:        FamilyImperative,
		Keywords:      []string{"int", "float", "char", "if", "else", "for", "while", "do", "return", "struct", "typedef", "#include"},
		LineComment:   "//",
		FileExtension: ".c",
	},
	FormatCPP: {
		Family:        FamilyImperative,
		Keywords:      []string{"int", "double", "char", "class", "public", "private", "if", "else", "for", "while", "return", "new", "delete", "#include"},
		LineComment:   "//",
		FileExtension: ".cpp",
	},
	FormatCSharp: {
		Family:        FamilyImperative,
		Keywords:      []string{"class", "public", "static", "void", "int", "string", "if", "else", "for", "foreach", "return", "new", "using", "namespace"},
		LineComment:   "//",
		FileExtension: ".cs",
	},
	FormatGo: {
		Family:        FamilyImperative,
		Keywords:      []string{"package", "import", "func", "var", "const", "if", "else", "for", "range", "return", "go", "chan", "select", "defer"},
		LineComment:   "//",
		FileExtension: ".go",
	},
	FormatSwift: {
		Family:        FamilyImperative,
		Keywords:      []string{"let", "var", "func", "class", "struct", "enum", "if", "else", "for", "while", "return", "import", "protocol"},
		LineComment:   "//",
		FileExtension: ".swift",
	},
	FormatKotlin: {
		Family:        FamilyImperative,
		Keywords:      []string{"val", "var", "fun", "class", "object", "if", "else", "for", "while", "return", "package", "import"},
		LineComment:   "//",
		FileExtension: ".kt",
	},
	FormatCSS: {
		Family:            FamilyStyling,
		Keywords:          []string{"color", "background", "font", "margin", "padding", "border", "display", "position"},
		BlockCommentOpen:  "/*",
		BlockCommentClose: "*/",
		FileExtension:     ".css",
	},
	FormatSQL: {
		Family:        FamilyQuery,
		Keywords:      []string{"SELECT", "FROM", "WHERE", "INSERT", "UPDATE", "DELETE", "CREATE", "TABLE", "JOIN", "GROUP BY", "ORDER BY"},
		LineComment:   "--",
		FileExtension: ".sql",
	},
	FormatPlainText: {
		Family:        FamilyNone,
		FileExtension: ".txt",
	},
}}

// DefaultLanguageTable returns the process-wide language table. The returned
// value is shared and must be treated as read-only.
func DefaultLanguageTable() *LanguageTable {
	return defaultTable
}
