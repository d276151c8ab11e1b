package authoring

import (
	"context"
	"fmt"
	"strings"

	"github.com/toothbrush/webverse-authoring/aem"
)

type PageQuery struct {
	PagePath string `json:"page_path"`
}

func (q *PageQuery) Validate() error {
	return requirePath("page_path", q.PagePath)
}

type PageContent struct {
	Success     bool     `json:"success"`
	Message     string   `json:"message"`
	PageContent aem.Node `json:"page_content"`
}

// GetPage returns the whole content tree of a page.
func (b *Builder) GetPage(ctx context.Context, q PageQuery) (*PageContent, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	node, err := b.CMS.GetNode(ctx, q.PagePath, -1)
	if err != nil {
		return nil, fmt.Errorf("authoring: couldn't fetch %s: %w", q.PagePath, err)
	}
	return &PageContent{
		Success:     true,
		Message:     fmt.Sprintf("Retrieved %s", q.PagePath),
		PageContent: node,
	}, nil
}

type ErrorPagesQuery struct {
	PagePath404 string `json:"page_path_404"`
	PagePath500 string `json:"page_path_500"`
}

func (q *ErrorPagesQuery) Validate() error {
	if err := requirePath("page_path_404", q.PagePath404); err != nil {
		return err
	}
	return requirePath("page_path_500", q.PagePath500)
}

type ErrorPagesContent struct {
	Success      bool     `json:"success"`
	Message      string   `json:"message"`
	Page404      aem.Node `json:"page_404"`
	Page500      aem.Node `json:"page_500"`
	ErrorDetails string   `json:"error_details,omitempty"`
}

// GetErrorPages fetches both error pages.  Either one missing is reported in the result rather
// than as an error.
func (b *Builder) GetErrorPages(ctx context.Context, q ErrorPagesQuery) (*ErrorPagesContent, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	out := &ErrorPagesContent{}
	var problems []string

	var err error
	if out.Page404, err = b.CMS.GetNode(ctx, q.PagePath404, -1); err != nil {
		problems = append(problems, fmt.Sprintf("couldn't fetch 404 page at %s: %v", q.PagePath404, err))
	}
	if out.Page500, err = b.CMS.GetNode(ctx, q.PagePath500, -1); err != nil {
		problems = append(problems, fmt.Sprintf("couldn't fetch 500 page at %s: %v", q.PagePath500, err))
	}

	out.Success = len(problems) == 0
	out.ErrorDetails = strings.Join(problems, "; ")
	switch {
	case out.Success:
		out.Message = "Successfully retrieved both error pages"
	case out.Page404 != nil || out.Page500 != nil:
		out.Message = "Partially retrieved error pages"
	default:
		out.Message = "Failed to retrieve error pages"
	}
	return out, nil
}

type ListPagesRequest struct {
	SitePath string `json:"site_path"`
}

// ListPages returns everything underneath a site, pages and their content alike.
func (b *Builder) ListPages(ctx context.Context, req ListPagesRequest) (aem.Node, error) {
	if err := requirePath("site_path", req.SitePath); err != nil {
		return nil, err
	}

	node, err := b.CMS.GetNode(ctx, req.SitePath, -1)
	if err != nil {
		return nil, fmt.Errorf("authoring: couldn't list pages of %s: %w", req.SitePath, err)
	}
	return node, nil
}
