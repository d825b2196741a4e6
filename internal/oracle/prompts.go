package oracle

import (
	"embed"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed templates/*.yaml
var templateFS embed.FS

const (
	KindComplexity         = "complexity"
	KindAnswer             = "answer"
	KindFollowUp           = "follow_up"
	KindDesign             = "design"
	KindStress             = "stress"
	KindEscalationQuestion = "escalation_question"
	KindBarAnalysis        = "bar_analysis"
)

// Prompt is one loaded template with its generation settings.
type Prompt struct {
	Name        string  `yaml:"name"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int32   `yaml:"max_tokens"`
	Template    string  `yaml:"template"`

	tmpl *template.Template
}

var promptFuncs = template.FuncMap{
	"truncate": truncate,
	"join":     strings.Join,
}

func loadPrompts() (map[string]*Prompt, error) {
	entries, err := templateFS.ReadDir("templates")
	if err != nil {
		return nil, fmt.Errorf("read templates directory: %w", err)
	}

	prompts := make(map[string]*Prompt, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		data, err := templateFS.ReadFile("templates/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", entry.Name(), err)
		}

		var p Prompt
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("parse template %s: %w", entry.Name(), err)
		}
		if p.Name == "" {
			p.Name = strings.TrimSuffix(entry.Name(), ".yaml")
		}

		p.tmpl, err = template.New(p.Name).Funcs(promptFuncs).Parse(p.Template)
		if err != nil {
			return nil, fmt.Errorf("compile template %s: %w", p.Name, err)
		}
		prompts[p.Name] = &p
	}
	return prompts, nil
}

// Render builds a request for data.
func (p *Prompt) Render(data any) (Request, error) {
	var sb strings.Builder
	if err := p.tmpl.Execute(&sb, data); err != nil {
		return Request{}, fmt.Errorf("render %s prompt: %w", p.Name, err)
	}
	return Request{
		Kind:        p.Name,
		Prompt:      sb.String(),
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
	}, nil
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
