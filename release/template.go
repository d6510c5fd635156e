package release

import (
	"fmt"
	"net/url"
	"strings"
	"text/template"
)

// DefaultURLFormat is where release assets are published on GitHub.
// The tag is joined verbatim; formats that need it as a single path segment
// can use {{pathescape .Tag}}.
const DefaultURLFormat = "{{.Host}}/{{.Repo}}/releases/download/{{.Tag}}/{{.Tarball}}"

// Template contains the fields available when resolving a download url.
type Template struct {
	// Host is the release host base url, e.g. https://github.com
	Host string
	// Repo is the repository identifier, e.g. facebook/dotslash
	Repo string
	// Tag is the release identifier exactly as supplied
	Tag string
	// Version is the version derived from the tag
	Version string
	// Product is the product name prefixing every tarball
	Product string

	// Platform and Arch are the matrix keys of the artifact
	Platform string
	Arch     string
	// Slug identifies the artifact
	Slug string
	// Binary is the executable name inside the artifact
	Binary string
	// Tarball is the asset file name, <product>-<slug>.tar.gz
	Tarball string
}

var funcs = template.FuncMap{
	"pathescape": url.PathEscape,
	"trimprefix": strings.TrimPrefix,
}

// TarballName is the asset file name of an artifact.
func TarballName(product, slug string) string {
	return fmt.Sprintf("%s-%s.tar.gz", product, slug)
}

// Resolve executes the provided format string as a template with the Template's fields.
func (t Template) Resolve(format string) (string, error) {
	tmpl, err := template.New("url").Funcs(funcs).Option("missingkey=error").Parse(format)
	if err != nil {
		return "", err
	}

	var bld strings.Builder
	if err := tmpl.Execute(&bld, t); err != nil {
		return "", err
	}

	return bld.String(), nil
}

// validateFormat fails early on formats that can't be parsed or reference
// fields that don't exist.
func validateFormat(format string) error {
	_, err := Template{}.Resolve(format)
	return err
}
