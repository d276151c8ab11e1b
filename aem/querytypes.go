package aem

// CopyOperation defines the form fields for the Sling POST copy operation:
// https://sling.apache.org/documentation/bundles/manipulating-content-the-slingpostservlet-servlets-post.html#copying-content
type CopyOperation struct {
	Operation string `url:":operation"` // always "copy"
	Dest      string `url:":dest"`      // absolute destination path
	Replace   bool   `url:":replace,omitempty"`
	Charset   string `url:"_charset_"`
}

// FolderProperties defines the form fields to create a DAM/sling folder:
// https://experienceleague.adobe.com/docs/experience-manager-cloud-service/content/assets/admin/manage-digital-assets.html
type FolderProperties struct {
	PrimaryType string `url:"jcr:primaryType"` // sling:Folder or sling:OrderedFolder
	Title       string `url:"jcr:title,omitempty"`
	Charset     string `url:"_charset_"`
}

// CurrentUserQuery defines the query parameters for /libs/granite/security/currentuser.json.
type CurrentUserQuery struct {
	Props []string `url:"props,omitempty,comma"` // limit the response to these properties
}
