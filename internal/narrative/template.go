// Package narrative provides NarrativeGenerator implementations that turn a
// screening result into a short plain-language explanation.
package narrative

import (
	"context"
	"fmt"
	"strings"

	"github.com/pcos-screening-server/internal/domain"
)

// TemplateGenerator renders a deterministic explanation without any network
// call. It is the default generator and the fallback behind BreakerGenerator.
type TemplateGenerator struct{}

// NewTemplateGenerator creates a template generator
func NewTemplateGenerator() *TemplateGenerator {
	return &TemplateGenerator{}
}

// Explain implements domain.NarrativeGenerator.
func (g *TemplateGenerator) Explain(ctx context.Context, input domain.NarrativeInput) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var b strings.Builder
	switch {
	case input.Phenotype.RequiresClinicalAction():
		b.WriteString("Some of the symptoms you reported need prompt medical attention. ")
		b.WriteString("Please contact a doctor or urgent care service before relying on any screening result.")
	case input.Phenotype.IsPCOSPositive():
		fmt.Fprintf(&b, "Your answers match a pattern often seen with PCOS (%s), with a confidence of %.0f%%. ",
			input.Phenotype.Base(), input.Confidence)
		if input.Phenotype.IsComplex() {
			b.WriteString("Other conditions you mentioned can cause similar symptoms, so a clinician should review them together. ")
		}
		b.WriteString("A doctor can confirm this with blood tests and, if needed, an ultrasound.")
	default:
		fmt.Fprintf(&b, "Screening result: %s (confidence %.0f%%). ", input.Phenotype, input.Confidence)
		b.WriteString("Keep tracking your cycle and symptoms, and talk to a doctor if anything changes or worries you.")
	}

	if points := keyPoints(input.Reasons); len(points) > 0 {
		b.WriteString("\n\nWhat this is based on:\n")
		for _, p := range points {
			b.WriteString("- ")
			b.WriteString(p)
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// keyPoints drops the disclaimer; the caller shows it separately.
func keyPoints(reasons []string) []string {
	var out []string
	for _, r := range reasons {
		if r == domain.Disclaimer {
			continue
		}
		out = append(out, r)
	}
	return out
}
