package authoring

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/toothbrush/webverse-authoring/aem"
)

// ErrorPagesRequest updates the existing 404 and 500 pages of a site.  Page paths default to
// {site_path}/errors/404 and {site_path}/errors/500.
type ErrorPagesRequest struct {
	SitePath      string         `json:"site_path"`
	JCRContent404 aem.Properties `json:"jcr_content_404"`
	JCRContent500 aem.Properties `json:"jcr_content_500"`
	PagePath404   string         `json:"page_path_404,omitempty"`
	PagePath500   string         `json:"page_path_500,omitempty"`
}

func (r *ErrorPagesRequest) Validate(markets Markets) error {
	if len(r.JCRContent404) == 0 {
		return invalid("jcr_content_404", "is required")
	}
	if len(r.JCRContent500) == 0 {
		return invalid("jcr_content_500", "is required")
	}
	if err := requireProperties("jcr_content_404", r.JCRContent404); err != nil {
		return err
	}
	if err := requireProperties("jcr_content_500", r.JCRContent500); err != nil {
		return err
	}

	if r.SitePath != "" || r.PagePath404 == "" || r.PagePath500 == "" {
		if r.SitePath == "" {
			return invalid("site_path", "is required unless both page paths are given")
		}
		if _, err := markets.FromSitePath(r.SitePath); err != nil {
			return err
		}
	}
	if r.PagePath404 != "" {
		if err := requirePath("page_path_404", r.PagePath404); err != nil {
			return err
		}
	}
	if r.PagePath500 != "" {
		if err := requirePath("page_path_500", r.PagePath500); err != nil {
			return err
		}
	}
	return nil
}

func (r *ErrorPagesRequest) paths() (string, string) {
	site := strings.TrimRight(r.SitePath, "/")
	p404, p500 := r.PagePath404, r.PagePath500
	if p404 == "" {
		p404 = site + "/errors/404"
	}
	if p500 == "" {
		p500 = site + "/errors/500"
	}
	return p404, p500
}

// CreateErrorPages writes the given content to both error pages, which must already exist.
func (b *Builder) CreateErrorPages(ctx context.Context, req ErrorPagesRequest) (*Outcome, error) {
	if err := req.Validate(b.Markets); err != nil {
		return nil, err
	}

	p404, p500 := req.paths()
	targets := []struct {
		name    string
		path    string
		content aem.Properties
	}{
		{"404", p404, req.JCRContent404},
		{"500", p500, req.JCRContent500},
	}

	results := make([]TargetResult, 0, len(targets))
	for _, t := range targets {
		if err := b.CMS.UpdateNode(ctx, t.path, t.content); err != nil {
			b.Logger.Warn("error page update failed", zap.String("page", t.name), zap.String("path", t.path), zap.Error(err))
			results = append(results, failed(t.name, t.path, err))
			continue
		}
		b.Logger.Info("updated error page", zap.String("page", t.name), zap.String("path", t.path))
		results = append(results, succeeded(t.name, t.path))
	}

	return newOutcome("error pages", results), nil
}
