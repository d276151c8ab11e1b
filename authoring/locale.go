package authoring

import (
	"context"
	"fmt"

	"github.com/toothbrush/webverse-authoring/aem"
)

type ModifyLocaleRequest struct {
	PagePath string `json:"page_path"`
	// Absent means there is nothing to do.  Present but empty is a mistake.
	JCRContent aem.Properties `json:"jcr_content,omitempty"`
}

func (r *ModifyLocaleRequest) Validate() error {
	if err := requirePath("page_path", r.PagePath); err != nil {
		return err
	}
	if r.JCRContent != nil && len(r.JCRContent) == 0 {
		return invalid("jcr_content", "must not be empty, leave it out to skip the update")
	}
	if err := requireProperties("jcr_content", r.JCRContent); err != nil {
		return err
	}
	return nil
}

type LocaleResult struct {
	Success  bool   `json:"success"`
	Skipped  bool   `json:"skipped"`
	Message  string `json:"message"`
	PagePath string `json:"page_path"`
}

// ModifyLocale writes locale settings to an existing page.
func (b *Builder) ModifyLocale(ctx context.Context, req ModifyLocaleRequest) (*LocaleResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if req.JCRContent == nil {
		return &LocaleResult{
			Success:  true,
			Skipped:  true,
			Message:  "Locale modification skipped, no content provided",
			PagePath: req.PagePath,
		}, nil
	}

	if err := b.CMS.UpdateNode(ctx, req.PagePath, req.JCRContent); err != nil {
		return nil, fmt.Errorf("authoring: couldn't modify locale of %s: %w", req.PagePath, err)
	}
	return &LocaleResult{
		Success:  true,
		Message:  fmt.Sprintf("Locale modified at %s", req.PagePath),
		PagePath: req.PagePath,
	}, nil
}
