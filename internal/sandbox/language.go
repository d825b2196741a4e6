package sandbox

import (
	"errors"

	"github.com/mockloop/interview-engine/internal/model"
)

var ErrUnsupportedLanguage = errors.New("unsupported_language")

// LanguageSpec describes how one submission language is executed. A spec
// with a non-empty Stub is accepted but never run.
type LanguageSpec struct {
	Language model.Language
	Ext      string
	// FileName is the source file name inside a container workspace.
	FileName string
	// Interpreter is invoked with Args followed by the source file.
	Interpreter string
	Args        []string
	// MemoryLimit is the ulimit a local child runs under. V8 reserves far
	// more address space than it uses, so node is bounded by data segment
	// and heap size instead of address space.
	MemoryLimit MemoryLimit
	Stub        string
}

// MemoryLimit is a shell ulimit flag and its value in KiB.
type MemoryLimit struct {
	Flag string
	KB   int
}

// Command is the argv that runs the source file at path.
func (s LanguageSpec) Command(path string) []string {
	cmd := make([]string, 0, len(s.Args)+2)
	cmd = append(cmd, s.Interpreter)
	cmd = append(cmd, s.Args...)
	return append(cmd, path)
}

var languages = map[model.Language]LanguageSpec{
	model.LanguagePython: {
		Language:    model.LanguagePython,
		Ext:         ".py",
		FileName:    "main.py",
		Interpreter: "python3",
		MemoryLimit: MemoryLimit{Flag: "-v", KB: MemoryLimitKB},
	},
	model.LanguageJavaScript: {
		Language:    model.LanguageJavaScript,
		Ext:         ".js",
		FileName:    "main.js",
		Interpreter: "node",
		Args:        []string{"--max-old-space-size=256"},
		MemoryLimit: MemoryLimit{Flag: "-d", KB: 2 * MemoryLimitKB},
	},
	model.LanguageJava: {
		Language: model.LanguageJava,
		Ext:      ".java",
		FileName: "Main.java",
		Stub:     "java execution requires a compiler toolchain",
	},
}

func langSpec(lang model.Language) (LanguageSpec, error) {
	spec, ok := languages[lang]
	if !ok {
		return LanguageSpec{}, ErrUnsupportedLanguage
	}
	return spec, nil
}

// SupportedLanguages lists accepted submission languages in a stable order.
func SupportedLanguages() []string {
	return []string{
		string(model.LanguagePython),
		string(model.LanguageJavaScript),
		string(model.LanguageJava),
	}
}
