// Package template provides the built-in policy template library. Templates
// are Markdown documents embedded in the binary and used to seed new policy
// drafts.
package template

import (
	"context"
	"embed"
	"fmt"

	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/errors"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/models"
)

//go:embed templates/*.md
var templateFS embed.FS

// catalog describes the built-in templates. Content is loaded lazily from the
// embedded filesystem keyed by ID.
var catalog = []*models.PolicyTemplate{
	{
		ID:                "acceptable-use",
		Code:              "TPL-AUP",
		Title:             "Acceptable Use Policy",
		Description:       "Rules for acceptable use of company systems and data.",
		Category:          "governance",
		Frameworks:        []string{"SOC 2", "ISO 27001"},
		ReviewFrequency:   "annual",
		RelatedTemplates:  []string{"access-control"},
		SuggestedControls: []string{"AC-1", "PS-6"},
	},
	{
		ID:                "access-control",
		Code:              "TPL-AC",
		Title:             "Access Control Policy",
		Description:       "How access to systems and data is granted, reviewed and revoked.",
		Category:          "security",
		Frameworks:        []string{"SOC 2", "ISO 27001", "NIST CSF"},
		ReviewFrequency:   "annual",
		RelatedTemplates:  []string{"acceptable-use"},
		SuggestedControls: []string{"AC-1", "AC-2", "AC-6"},
	},
	{
		ID:                "incident-response",
		Code:              "TPL-IR",
		Title:             "Incident Response Plan",
		Description:       "Detection, triage, containment and post-mortem procedures.",
		Category:          "security",
		Frameworks:        []string{"SOC 2", "ISO 27001"},
		ReviewFrequency:   "semiannual",
		SuggestedControls: []string{"IR-1", "IR-4", "IR-8"},
	},
	{
		ID:                "data-classification",
		Code:              "TPL-DC",
		Title:             "Data Classification Policy",
		Description:       "Classification levels and handling requirements for company data.",
		Category:          "governance",
		Frameworks:        []string{"ISO 27001"},
		ReviewFrequency:   "annual",
		RelatedTemplates:  []string{"acceptable-use"},
		SuggestedControls: []string{"MP-2", "SC-8"},
	},
	{
		ID:                "vendor-management",
		Code:              "TPL-VM",
		Title:             "Vendor Management Policy",
		Description:       "Third-party onboarding, assessment and offboarding requirements.",
		Category:          "risk",
		Frameworks:        []string{"SOC 2"},
		ReviewFrequency:   "annual",
		SuggestedControls: []string{"SA-9", "SA-12"},
	},
}

// Service provides read access to the template library.
type Service interface {
	// List returns all templates without content, optionally filtered by category.
	List(ctx context.Context, category string) ([]*models.PolicyTemplate, error)
	// Get returns a single template with its Markdown content.
	Get(ctx context.Context, id string) (*models.PolicyTemplate, error)
}

// NewService creates the template service over the embedded library.
func NewService() Service {
	return &serviceImpl{}
}

type serviceImpl struct{}

func (s *serviceImpl) List(_ context.Context, category string) ([]*models.PolicyTemplate, error) {
	var out []*models.PolicyTemplate
	for _, t := range catalog {
		if category != "" && t.Category != category {
			continue
		}
		copy := *t
		out = append(out, &copy)
	}
	return out, nil
}

func (s *serviceImpl) Get(_ context.Context, id string) (*models.PolicyTemplate, error) {
	for _, t := range catalog {
		if t.ID == id {
			content, err := templateFS.ReadFile("templates/" + id + ".md")
			if err != nil {
				return nil, fmt.Errorf("failed to read template %s: %w", id, err)
			}
			copy := *t
			copy.Content = string(content)
			return &copy, nil
		}
	}
	return nil, errors.ErrNotFound
}
