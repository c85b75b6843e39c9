package chunker

import "github.com/mike-a-ellis/repo-rag/internal/source"

// Strategy is the closed set of ways a file can be split. The concrete
// types below are the only implementations.
type Strategy interface {
	strategy()
}

// CodeStrategy splits on language-specific separators, highest priority
// first. The list always ends with the character-level separator "".
type CodeStrategy struct {
	Separators []string
}

// MarkdownStrategy splits at heading boundaries found in the parsed document,
// then falls back to markdownSeparators for oversize sections.
type MarkdownStrategy struct{}

// Unsupported marks files that are not chunked at all.
type Unsupported struct{}

func (CodeStrategy) strategy()     {}
func (MarkdownStrategy) strategy() {}
func (Unsupported) strategy()      {}

var fallbackSeparators = []string{"\n\n", "\n", " ", ""}

var markdownSeparators = []string{"```\n", "\n\n", "\n", " ", ""}

var codeSeparators = map[source.Language][]string{
	source.LanguageGo: {
		"\nfunc ", "\nvar ", "\nconst ", "\ntype ",
		"\nif ", "\nfor ", "\nswitch ", "\ncase ",
	},
	source.LanguagePython: {
		"\nclass ", "\ndef ", "\n\tdef ", "\n    def ",
	},
	source.LanguageJavaScript: {
		"\nfunction ", "\nconst ", "\nlet ", "\nvar ", "\nclass ",
		"\nif ", "\nfor ", "\nwhile ", "\nswitch ", "\ncase ", "\ndefault ",
	},
	source.LanguageTypeScript: {
		"\nenum ", "\ninterface ", "\nnamespace ", "\ntype ",
		"\nclass ", "\nfunction ", "\nconst ", "\nlet ", "\nvar ",
		"\nif ", "\nfor ", "\nwhile ", "\nswitch ", "\ncase ", "\ndefault ",
	},
	source.LanguageJava: {
		"\nclass ", "\npublic ", "\nprotected ", "\nprivate ", "\nstatic ",
		"\nif ", "\nfor ", "\nwhile ", "\nswitch ", "\ncase ",
	},
	source.LanguageKotlin: {
		"\nclass ", "\npublic ", "\nprotected ", "\nprivate ", "\ninternal ",
		"\ncompanion ", "\nfun ", "\nval ", "\nvar ",
		"\nif ", "\nfor ", "\nwhile ", "\nwhen ", "\ncase ", "\nelse ",
	},
	source.LanguageRust: {
		"\nfn ", "\nconst ", "\nlet ", "\nif ", "\nwhile ", "\nfor ",
		"\nloop ", "\nmatch ",
	},
	source.LanguageC: {
		"\nstruct ", "\nenum ", "\nstatic ", "\nvoid ", "\nint ", "\nchar ",
		"\nif ", "\nfor ", "\nwhile ", "\nswitch ", "\ncase ",
	},
	source.LanguageCpp: {
		"\nclass ", "\nnamespace ", "\ntemplate ", "\nvoid ", "\nint ",
		"\nfloat ", "\ndouble ", "\nif ", "\nfor ", "\nwhile ", "\nswitch ",
		"\ncase ",
	},
	source.LanguageCSharp: {
		"\ninterface ", "\nenum ", "\nimplements ", "\ndelegate ", "\nevent ",
		"\nclass ", "\nabstract ", "\npublic ", "\nprotected ", "\nprivate ",
		"\nstatic ", "\nreturn ", "\nif ", "\ncontinue ", "\nfor ",
		"\nforeach ", "\nwhile ", "\nswitch ", "\nbreak ", "\ncase ",
		"\nelse ", "\ntry ", "\nthrow ", "\nfinally ", "\ncatch ",
	},
	source.LanguageRuby: {
		"\ndef ", "\nclass ", "\nif ", "\nunless ", "\nwhile ", "\nfor ",
		"\ndo ", "\nbegin ", "\nrescue ",
	},
	source.LanguagePHP: {
		"\nfunction ", "\nclass ", "\nif ", "\nforeach ", "\nwhile ",
		"\ndo ", "\nswitch ", "\ncase ",
	},
	source.LanguageScala: {
		"\nclass ", "\nobject ", "\ndef ", "\nval ", "\nvar ",
		"\nif ", "\nfor ", "\nwhile ", "\nmatch ", "\ncase ",
	},
	source.LanguageSwift: {
		"\nfunc ", "\nclass ", "\nstruct ", "\nenum ",
		"\nif ", "\nfor ", "\nwhile ", "\ndo ", "\nswitch ", "\ncase ",
	},
	source.LanguageLua: {
		"\nlocal ", "\nfunction ", "\nif ", "\nfor ", "\nwhile ", "\nrepeat ",
	},
	source.LanguageHaskell: {
		"\nmain :: ", "\nmain = ", "\nlet ", "\nin ", "\ndo ", "\nwhere ",
		"\n:: ", "\n= ", "\ndata ", "\nnewtype ", "\ntype ", "\nmodule ",
		"\nimport ", "\nqualified ", "\nimport qualified ", "\nclass ",
		"\ninstance ", "\ncase ", "\n| ",
	},
	source.LanguageSolidity: {
		"\npragma ", "\nusing ", "\ncontract ", "\ninterface ", "\nlibrary ",
		"\nconstructor ", "\ntype ", "\nfunction ", "\nevent ", "\nmodifier ",
		"\nerror ", "\nstruct ", "\nenum ", "\nif ", "\nfor ", "\nwhile ",
		"\ndo while ", "\nassembly ",
	},
	source.LanguageProto: {
		"\nmessage ", "\nservice ", "\nenum ", "\noption ", "\nimport ",
		"\nsyntax ",
	},
	source.LanguageRST: {
		"\n===", "\n---", "\n***", "\n\n.. ",
	},
	source.LanguageHTML: {
		"<body", "<div", "<p", "<br", "<li", "<h1", "<h2", "<h3", "<h4",
		"<h5", "<h6", "<span", "<table", "<tr", "<td", "<th", "<ul", "<ol",
		"<header", "<footer", "<nav", "<head", "<style", "<script", "<meta",
		"<title",
	},
	source.LanguageLaTeX: {
		"\n\\chapter{", "\n\\section{", "\n\\subsection{",
		"\n\\subsubsection{", "\n\\begin{enumerate}", "\n\\begin{itemize}",
		"\n\\begin{description}", "\n\\begin{list}", "\n\\begin{quote}",
		"\n\\begin{quotation}", "\n\\begin{verse}", "\n\\begin{verbatim}",
		"\n\\begin{align}",
	},
	source.LanguageText: {},
}

// StrategyFor returns the splitting strategy for lang. Languages without a
// mapping, including LanguageNone, get Unsupported.
func StrategyFor(lang source.Language) Strategy {
	if lang == source.LanguageMarkdown {
		return MarkdownStrategy{}
	}
	seps, ok := codeSeparators[lang]
	if !ok {
		return Unsupported{}
	}
	all := make([]string, 0, len(seps)+len(fallbackSeparators))
	all = append(all, seps...)
	all = append(all, fallbackSeparators...)
	return CodeStrategy{Separators: all}
}
