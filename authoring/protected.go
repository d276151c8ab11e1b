package authoring

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/toothbrush/webverse-authoring/aem"
)

type ProtectedPageConfig struct {
	PageName          string         `json:"page_name"`
	Title             string         `json:"title,omitempty"`
	TemplateAssetPath string         `json:"template_asset_path,omitempty"`
	JCRContent        aem.Properties `json:"jcr_content,omitempty"`
}

type ProtectedPagesRequest struct {
	SitePath    string                `json:"site_path"`
	Market      string                `json:"market"`
	PagesConfig []ProtectedPageConfig `json:"pages_config"`
}

func (r *ProtectedPagesRequest) Validate(markets Markets) error {
	if _, err := markets.marketFor(r.SitePath, r.Market); err != nil {
		return err
	}
	if len(r.PagesConfig) == 0 {
		return invalid("pages_config", "needs at least one page")
	}

	seen := map[string]bool{}
	for i, page := range r.PagesConfig {
		if err := requireName(indexed("pages_config", i, "page_name"), page.PageName); err != nil {
			return err
		}
		if seen[page.PageName] {
			return invalid(indexed("pages_config", i, "page_name"), "%s appears twice", quote(page.PageName))
		}
		seen[page.PageName] = true

		hasTemplate, hasContent := page.TemplateAssetPath != "", len(page.JCRContent) > 0
		if hasTemplate == hasContent {
			return invalid(indexed("pages_config", i, "template_asset_path"), "give either template_asset_path or jcr_content")
		}
		if err := requireProperties(indexed("pages_config", i, "jcr_content"), page.JCRContent); err != nil {
			return err
		}
	}
	return nil
}

// CreateProtectedPages creates one login protected page per entry of PagesConfig.  Every entry
// gets a result of its own, whatever happened to the others.
func (b *Builder) CreateProtectedPages(ctx context.Context, req ProtectedPagesRequest) (*Outcome, error) {
	if err := req.Validate(b.Markets); err != nil {
		return nil, err
	}
	market, _ := b.Markets.FromSitePath(req.SitePath)
	site := strings.TrimRight(req.SitePath, "/")

	results := make([]TargetResult, 0, len(req.PagesConfig))
	for _, page := range req.PagesConfig {
		p := site + "/" + page.PageName
		if err := b.createProtectedPage(ctx, site, p, market, page); err != nil {
			b.Logger.Warn("protected page failed", zap.String("path", p), zap.Error(err))
			results = append(results, failed(page.PageName, p, err))
			continue
		}
		b.Logger.Info("created protected page", zap.String("path", p))
		results = append(results, succeeded(page.PageName, p))
	}

	return newOutcome("protected pages", results), nil
}

func (b *Builder) createProtectedPage(ctx context.Context, site, p, market string, page ProtectedPageConfig) error {
	title := page.Title
	if title == "" {
		title = page.PageName
	}
	protection := aem.Properties{
		"cq:authenticationRequired": true,
		"cq:loginPath":              site + "/login",
	}

	var props aem.Properties
	if page.TemplateAssetPath != "" {
		html, err := b.template(ctx, page.TemplateAssetPath, Vars{
			Market:   market,
			SitePath: site,
			PageName: page.PageName,
		})
		if err != nil {
			return fmt.Errorf("authoring: couldn't prepare template %s: %w", page.TemplateAssetPath, err)
		}
		props = b.page(title, html, protection)
	} else {
		content := aem.Properties{"jcr:primaryType": "cq:PageContent", "jcr:title": title}
		for k, v := range page.JCRContent {
			content[k] = v
		}
		for k, v := range protection {
			content[k] = v
		}
		props = aem.Properties{
			"jcr:primaryType": "cq:Page",
			"jcr:content":     content,
		}
	}

	return b.CMS.CreateNode(ctx, p, props)
}
