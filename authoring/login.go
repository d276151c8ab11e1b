package authoring

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/toothbrush/webverse-authoring/aem"
)

const loginPageName = "login"

type LoginComponentConfig struct {
	Name              string `json:"name"`
	TemplateAssetPath string `json:"template_asset_path"`
	ResourceType      string `json:"resource_type,omitempty"`
}

type LoginPageRequest struct {
	SitePath              string                 `json:"site_path"`
	Market                string                 `json:"market"`
	LoginComponentsConfig []LoginComponentConfig `json:"login_components_config"`
}

func (r *LoginPageRequest) Validate(markets Markets) error {
	if _, err := markets.marketFor(r.SitePath, r.Market); err != nil {
		return err
	}
	if len(r.LoginComponentsConfig) == 0 {
		return invalid("login_components_config", "needs at least one component")
	}

	seen := map[string]bool{}
	for i, c := range r.LoginComponentsConfig {
		if err := requireName(indexed("login_components_config", i, "name"), c.Name); err != nil {
			return err
		}
		if seen[c.Name] {
			return invalid(indexed("login_components_config", i, "name"), "%s appears twice", quote(c.Name))
		}
		seen[c.Name] = true

		if c.TemplateAssetPath == "" {
			return invalid(indexed("login_components_config", i, "template_asset_path"), "is required")
		}
	}
	return nil
}

// CreateLoginPage makes sure {site}/login exists, then creates each configured component in its
// root container.  Components succeed or fail on their own.
func (b *Builder) CreateLoginPage(ctx context.Context, req LoginPageRequest) (*Outcome, error) {
	if err := req.Validate(b.Markets); err != nil {
		return nil, err
	}
	market, _ := b.Markets.FromSitePath(req.SitePath)
	site := strings.TrimRight(req.SitePath, "/")
	login := site + "/" + loginPageName

	if err := b.ensureLoginPage(ctx, login, market); err != nil {
		return nil, err
	}

	results := make([]TargetResult, 0, len(req.LoginComponentsConfig))
	for _, c := range req.LoginComponentsConfig {
		p := login + "/jcr:content/root/" + c.Name

		html, err := b.template(ctx, c.TemplateAssetPath, Vars{
			Market:   market,
			SitePath: site,
			PageName: loginPageName,
		})
		if err == nil {
			err = b.CMS.CreateNode(ctx, p, b.text(html, c.ResourceType))
		}
		if err != nil {
			b.Logger.Warn("login component failed", zap.String("path", p), zap.Error(err))
			results = append(results, failed(c.Name, p, err))
			continue
		}
		b.Logger.Info("created login component", zap.String("path", p))
		results = append(results, succeeded(c.Name, p))
	}

	return newOutcome("login components", results), nil
}

func (b *Builder) ensureLoginPage(ctx context.Context, login, market string) error {
	exists, err := b.CMS.NodeExists(ctx, login)
	if err != nil {
		return fmt.Errorf("authoring: couldn't check login page %s: %w", login, err)
	}
	if exists {
		return nil
	}

	err = b.CMS.CreateNode(ctx, login, aem.Properties{
		"jcr:primaryType": "cq:Page",
		"jcr:content": aem.Properties{
			"jcr:primaryType":    "cq:PageContent",
			"jcr:title":          fmt.Sprintf("Login %s", MarketTitle(market)),
			"sling:resourceType": b.Paths.PageResourceType,
			"root": aem.Properties{
				"jcr:primaryType":    "nt:unstructured",
				"sling:resourceType": "wcm/foundation/components/responsivegrid",
			},
		},
	})
	if err != nil {
		return fmt.Errorf("authoring: couldn't create login page %s: %w", login, err)
	}
	b.Logger.Info("created login page", zap.String("path", login))
	return nil
}
