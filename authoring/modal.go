package authoring

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const modalPageName = "hcp-modal-popup"

type HCPModalPopupRequest struct {
	SitePath          string `json:"site_path"`
	Market            string `json:"market"`
	TemplateAssetPath string `json:"template_asset_path"`
}

func (r *HCPModalPopupRequest) Validate(markets Markets) error {
	if _, err := markets.marketFor(r.SitePath, r.Market); err != nil {
		return err
	}
	if r.TemplateAssetPath == "" {
		return invalid("template_asset_path", "is required")
	}
	return nil
}

// CreateHCPModalPopup creates the "are you a healthcare professional?" popup page of a site
// from a DAM template, and returns its path.
func (b *Builder) CreateHCPModalPopup(ctx context.Context, req HCPModalPopupRequest) (string, error) {
	if err := req.Validate(b.Markets); err != nil {
		return "", err
	}
	market, _ := b.Markets.FromSitePath(req.SitePath)
	site := strings.TrimRight(req.SitePath, "/")
	p := site + "/" + modalPageName

	html, err := b.template(ctx, req.TemplateAssetPath, Vars{
		Market:   market,
		SitePath: site,
		PageName: modalPageName,
	})
	if err != nil {
		return "", fmt.Errorf("authoring: couldn't prepare template %s: %w", req.TemplateAssetPath, err)
	}

	title := fmt.Sprintf("HCP Modal Popup %s", MarketTitle(market))
	if err := b.CMS.CreateNode(ctx, p, b.page(title, html, nil)); err != nil {
		return "", fmt.Errorf("authoring: couldn't create %s: %w", p, err)
	}

	b.Logger.Info("created hcp modal popup", zap.String("path", p))
	return p, nil
}
