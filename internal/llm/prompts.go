package llm

import (
	"embed"
	"fmt"
	"path"
	"strings"

	"github.com/osteele/liquid"

	"github.com/kha159-create/alsani-cockpit/internal/pkg/numfmt"
)

// Prompt template names.
const (
	PromptClassify      = "classify"
	PromptFileSummary   = "file_summary"
	PromptCoaching      = "coaching"
	PromptPitch         = "pitch"
	PromptBriefing      = "briefing"
	PromptStoreAnalysis = "store_analysis"
	PromptForecast      = "forecast"
	PromptChatSystem    = "chat_system"
	PromptChatContext   = "chat_context"
)

//go:embed templates/*.liquid
var templateFS embed.FS

// Prompts renders the Liquid prompt templates.
type Prompts struct {
	engine    *liquid.Engine
	templates map[string]*liquid.Template
	language  string
}

// NewPrompts parses every embedded template. language is the language the
// model should answer in (e.g. "Arabic").
func NewPrompts(language string) (*Prompts, error) {
	if language == "" {
		language = "Arabic"
	}
	engine := liquid.NewEngine()
	registerFilters(engine)

	entries, err := templateFS.ReadDir("templates")
	if err != nil {
		return nil, err
	}
	p := &Prompts{engine: engine, templates: map[string]*liquid.Template{}, language: language}
	for _, e := range entries {
		src, err := templateFS.ReadFile(path.Join("templates", e.Name()))
		if err != nil {
			return nil, err
		}
		tpl, perr := engine.ParseString(string(src))
		if perr != nil {
			return nil, fmt.Errorf("parse prompt %s: %w", e.Name(), perr)
		}
		p.templates[strings.TrimSuffix(e.Name(), ".liquid")] = tpl
	}
	return p, nil
}

// Render fills the named template. The "language" binding is always set.
func (p *Prompts) Render(name string, vars map[string]any) (string, error) {
	tpl, ok := p.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown prompt %q", name)
	}
	bindings := liquid.Bindings{"language": p.language}
	for k, v := range vars {
		bindings[k] = v
	}
	out, err := tpl.RenderString(bindings)
	if err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}
	return strings.TrimSpace(out), nil
}

func registerFilters(engine *liquid.Engine) {
	// {{ total | money }} → 12,345.5
	engine.RegisterFilter("money", func(v interface{}) string {
		return numfmt.Format(toFloat(v))
	})
	// {{ rate | pct }} → 12.3
	engine.RegisterFilter("pct", func(v interface{}) string {
		return fmt.Sprintf("%.1f", toFloat(v))
	})
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case int32:
		return float64(n)
	default:
		return 0
	}
}
