// Package wizard provides the interactive `thinktwice init` flow that
// collects provider settings and renders a starter .thinktwice.yaml.
package wizard

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"text/template"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/thinktwice-ai/thinktwice/internal/config"
)

// ConfigSpec holds all fields collected during the interactive wizard. The
// API key is collected only to verify the user has one at hand; it is never
// written to the config file.
type ConfigSpec struct {
	APIKey         string
	BaseURL        string
	GeneratorModel string
	AuditorModel   string
	MaxTakeovers   int
}

const configYAMLTemplate = `# ThinkTwice configuration.
# The API key is intentionally not stored here; pass it with --api-key or
# the THINKTWICE_API_KEY environment variable.
base_url: "{{ .BaseURL }}"
generator_model: "{{ .GeneratorModel }}"
auditor_model: "{{ .AuditorModel }}"
max_takeovers: {{ .MaxTakeovers }}
`

// knownEndpoints are offered as select options; "custom" falls back to a
// free-form input.
var knownEndpoints = []huh.Option[string]{
	huh.NewOption("OpenRouter (https://openrouter.ai/api/v1)", "https://openrouter.ai/api/v1"),
	huh.NewOption("OpenAI (https://api.openai.com/v1)", "https://api.openai.com/v1"),
	huh.NewOption("Local Ollama (http://localhost:11434/v1)", "http://localhost:11434/v1"),
	huh.NewOption("Custom", "custom"),
}

// RunConfigWizard runs an interactive huh form to collect provider settings.
// Defaults pre-populate each field.
func RunConfigWizard(in io.Reader, out io.Writer, defaults *config.Config) (*ConfigSpec, error) {
	if defaults == nil {
		defaults = config.New()
	}

	var (
		apiKey    string
		endpoint  = defaults.BaseURL
		customURL string
		generator = defaults.GeneratorModel
		auditor   = defaults.AuditorModel
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("API key").
				Description("Used for this session only; it is not saved").
				EchoMode(huh.EchoModePassword).
				Value(&apiKey).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("an API key is required")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Provider endpoint").
				Options(knownEndpoints...).
				Value(&endpoint),
			huh.NewInput().
				Title("Custom endpoint URL").
				Description("Only used when the endpoint above is Custom").
				Placeholder("https://example.com/v1").
				Value(&customURL),
			huh.NewInput().
				Title("Generator model").
				Description("Streams the reasoning; pick a fast model").
				Value(&generator).
				Validate(requireNonEmpty("generator model")),
			huh.NewInput().
				Title("Auditor model").
				Description("Verifies each reasoning step").
				Value(&auditor).
				Validate(requireNonEmpty("auditor model")),
		),
	).
		WithInput(in).
		WithOutput(out)

	// Use accessible mode for non-TTY input (e.g., tests, piped input).
	if f, ok := in.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		form = form.WithAccessible(true)
	}

	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("wizard failed: %w", err)
	}

	baseURL := endpoint
	if endpoint == "custom" {
		baseURL = strings.TrimSpace(customURL)
	}
	if err := validateBaseURL(baseURL); err != nil {
		return nil, err
	}

	return &ConfigSpec{
		APIKey:         strings.TrimSpace(apiKey),
		BaseURL:        baseURL,
		GeneratorModel: strings.TrimSpace(generator),
		AuditorModel:   strings.TrimSpace(auditor),
		MaxTakeovers:   defaults.MaxTakeovers,
	}, nil
}

// GenerateConfigYAML renders a .thinktwice.yaml from the given spec.
func GenerateConfigYAML(spec *ConfigSpec) (string, error) {
	tmpl, err := template.New("configyaml").Parse(configYAMLTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, spec); err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}
	return buf.String(), nil
}

func requireNonEmpty(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid endpoint URL %q", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("endpoint URL must use http or https, got %q", u.Scheme)
	}
	return nil
}
