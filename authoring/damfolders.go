package authoring

import (
	"context"
	"fmt"
	"strings"
)

type DAMFoldersRequest struct {
	DAMPath string `json:"dam_path"`
	Market  string `json:"market"`
	Locale  string `json:"locale"`
	// HCP, Patient or Both, in any case.
	Site string `json:"site"`
}

type DAMFolders struct {
	HCPImagesPath     string   `json:"hcp_images_path,omitempty"`
	HCPPDFsPath       string   `json:"hcp_pdfs_path,omitempty"`
	PatientImagesPath string   `json:"patient_images_path,omitempty"`
	PatientPDFsPath   string   `json:"patient_pdfs_path,omitempty"`
	Created           []string `json:"created_folders"`
}

func (r *DAMFoldersRequest) Validate() error {
	if err := requirePath("dam_path", r.DAMPath); err != nil {
		return err
	}
	if err := requireName("market", r.Market); err != nil {
		return err
	}
	if err := requireName("locale", r.Locale); err != nil {
		return err
	}
	if _, err := r.audiences(); err != nil {
		return err
	}
	return nil
}

func (r *DAMFoldersRequest) audiences() ([]string, error) {
	switch strings.ToUpper(r.Site) {
	case "HCP":
		return []string{"HCP"}, nil
	case "PATIENT":
		return []string{"Patient"}, nil
	case "BOTH":
		return []string{"HCP", "Patient"}, nil
	}
	return nil, invalid("site", "%s must be HCP, Patient or Both", quote(r.Site))
}

// CreateDAMFolders lays out {dam}/{market}/{locale}/{HCP|Patient}/{Images|PDFs}.  Folders that
// already exist are left alone.  The first failure stops the run.
func (b *Builder) CreateDAMFolders(ctx context.Context, req DAMFoldersRequest) (*DAMFolders, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	audiences, _ := req.audiences()

	out := &DAMFolders{Created: []string{}}
	ensure := func(p, title string) error {
		created, err := b.ensureFolder(ctx, p, title)
		if err != nil {
			return fmt.Errorf("authoring: couldn't create folder %s: %w", p, err)
		}
		if created {
			out.Created = append(out.Created, p)
		}
		return nil
	}

	market := strings.TrimRight(req.DAMPath, "/") + "/" + req.Market
	locale := market + "/" + req.Locale
	for _, folder := range []struct{ path, title string }{{market, req.Market}, {locale, req.Locale}} {
		if err := ensure(folder.path, folder.title); err != nil {
			return nil, err
		}
	}

	for _, audience := range audiences {
		root := locale + "/" + audience
		images, pdfs := root+"/Images", root+"/PDFs"
		for _, folder := range []struct{ path, title string }{{root, audience}, {images, "Images"}, {pdfs, "PDFs"}} {
			if err := ensure(folder.path, folder.title); err != nil {
				return nil, err
			}
		}

		if audience == "HCP" {
			out.HCPImagesPath, out.HCPPDFsPath = images, pdfs
		} else {
			out.PatientImagesPath, out.PatientPDFsPath = images, pdfs
		}
	}

	return out, nil
}
