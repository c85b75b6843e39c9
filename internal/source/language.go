package source

import (
	"path"
	"strings"
)

// Language is the closed set of file types the chunker knows how to split.
// LanguageNone marks files with no chunking strategy.
type Language string

const (
	LanguageNone       Language = ""
	LanguageGo         Language = "go"
	LanguagePython     Language = "python"
	LanguageJavaScript Language = "javascript"
	LanguageTypeScript Language = "typescript"
	LanguageJava       Language = "java"
	LanguageKotlin     Language = "kotlin"
	LanguageRust       Language = "rust"
	LanguageC          Language = "c"
	LanguageCpp        Language = "cpp"
	LanguageCSharp     Language = "csharp"
	LanguageRuby       Language = "ruby"
	LanguagePHP        Language = "php"
	LanguageScala      Language = "scala"
	LanguageSwift      Language = "swift"
	LanguageLua        Language = "lua"
	LanguageHaskell    Language = "haskell"
	LanguageSolidity   Language = "solidity"
	LanguageProto      Language = "proto"
	LanguageMarkdown   Language = "markdown"
	LanguageRST        Language = "rst"
	LanguageHTML       Language = "html"
	LanguageLaTeX      Language = "latex"
	LanguageText       Language = "text"
)

var extensions = map[string]Language{
	".go":       LanguageGo,
	".py":       LanguagePython,
	".pyi":      LanguagePython,
	".js":       LanguageJavaScript,
	".jsx":      LanguageJavaScript,
	".mjs":      LanguageJavaScript,
	".cjs":      LanguageJavaScript,
	".ts":       LanguageTypeScript,
	".tsx":      LanguageTypeScript,
	".java":     LanguageJava,
	".kt":       LanguageKotlin,
	".kts":      LanguageKotlin,
	".rs":       LanguageRust,
	".c":        LanguageC,
	".h":        LanguageC,
	".cc":       LanguageCpp,
	".cpp":      LanguageCpp,
	".cxx":      LanguageCpp,
	".hpp":      LanguageCpp,
	".hh":       LanguageCpp,
	".cs":       LanguageCSharp,
	".rb":       LanguageRuby,
	".php":      LanguagePHP,
	".scala":    LanguageScala,
	".swift":    LanguageSwift,
	".lua":      LanguageLua,
	".hs":       LanguageHaskell,
	".sol":      LanguageSolidity,
	".proto":    LanguageProto,
	".md":       LanguageMarkdown,
	".markdown": LanguageMarkdown,
	".mdx":      LanguageMarkdown,
	".rst":      LanguageRST,
	".html":     LanguageHTML,
	".htm":      LanguageHTML,
	".tex":      LanguageLaTeX,
	".txt":      LanguageText,
}

// DetectLanguage maps a file path to a Language by extension.
// Unknown extensions return LanguageNone.
func DetectLanguage(p string) Language {
	ext := strings.ToLower(path.Ext(p))
	return extensions[ext]
}
