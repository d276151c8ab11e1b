package authoring

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/toothbrush/webverse-authoring/aem"
)

const duplicatedTemplateType = "duplicated-mava-template"

type DuplicateTemplateRequest struct {
	MarketRegion string `json:"market_region"`
	Drug         string `json:"drug,omitempty"`
	SourcePath   string `json:"source_path"`
}

func (r *DuplicateTemplateRequest) Validate() error {
	if strings.TrimSpace(r.MarketRegion) == "" {
		return invalid("market_region", "is required")
	}
	if _, err := SegmentFor(r.MarketRegion, r.Drug); err != nil {
		return err
	}
	return requirePath("source_path", r.SourcePath)
}

// DuplicateTemplate copies the template at SourcePath to {DuplicateParent}/hcp-{region}[-{drug}]
// and tags the copy with where it came from.  It never overwrites: an existing destination is a
// conflict, a missing source is not found.
func (b *Builder) DuplicateTemplate(ctx context.Context, req DuplicateTemplateRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	segment, _ := SegmentFor(req.MarketRegion, req.Drug)
	src := strings.TrimRight(req.SourcePath, "/")
	dest := strings.TrimRight(b.Paths.DuplicateParent, "/") + "/" + segment

	srcExists, err := b.CMS.NodeExists(ctx, src)
	if err != nil {
		return "", fmt.Errorf("authoring: couldn't check source template %s: %w", src, err)
	}
	if !srcExists {
		return "", fmt.Errorf("authoring: source template %s: %w", src, aem.ErrNotFound)
	}

	destExists, err := b.CMS.NodeExists(ctx, dest)
	if err != nil {
		return "", fmt.Errorf("authoring: couldn't check destination %s: %w", dest, err)
	}
	if destExists {
		return "", fmt.Errorf("authoring: destination %s already exists: %w", dest, aem.ErrConflict)
	}

	if err := b.CMS.Copy(ctx, src, dest); err != nil {
		return "", fmt.Errorf("authoring: couldn't copy %s to %s: %w", src, dest, err)
	}

	content := aem.Properties{
		"jcr:title":      segment,
		"marketRegion":   req.MarketRegion,
		"templateType":   duplicatedTemplateType,
		"sourceTemplate": src,
	}
	if req.Drug != "" {
		content["drug"] = req.Drug
	}
	if err := b.CMS.CreateNode(ctx, dest, aem.Properties{"jcr:content": content}); err != nil {
		return "", fmt.Errorf("authoring: copied to %s but couldn't set its properties: %w", dest, err)
	}

	b.Logger.Info("duplicated template",
		zap.String("source", src),
		zap.String("destination", dest),
		zap.String("market_region", req.MarketRegion),
		zap.String("drug", req.Drug))
	return dest, nil
}
