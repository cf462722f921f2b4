package epub

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// container represents META-INF/container.xml.
type container struct {
	Rootfiles []struct {
		FullPath  string `xml:"full-path,attr"`
		MediaType string `xml:"media-type,attr"`
	} `xml:"rootfiles>rootfile"`
}

// packageDoc represents the OPF package document.
type packageDoc struct {
	Titles   []string       `xml:"metadata>title"`
	Creators []string       `xml:"metadata>creator"`
	Items    []manifestItem `xml:"manifest>item"`
	Spine    struct {
		Toc      string `xml:"toc,attr"`
		ItemRefs []struct {
			IDRef string `xml:"idref,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

type manifestItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr"`

	// name is the resolved path of the item inside the archive.
	name string
}

func (m manifestItem) isDocument() bool {
	switch m.MediaType {
	case "application/xhtml+xml", "text/html":
		return true
	}
	return false
}

func (m manifestItem) isNav() bool {
	for _, p := range strings.Fields(m.Properties) {
		if p == "nav" {
			return true
		}
	}
	return path.Base(m.name) == "nav.xhtml"
}

// ncx represents an EPUB 2 navigation control file.
type ncx struct {
	Points []navPoint `xml:"navMap>navPoint"`
}

type navPoint struct {
	Label   string `xml:"navLabel>text"`
	Content struct {
		Src string `xml:"src,attr"`
	} `xml:"content"`
	Children []navPoint `xml:"navPoint"`
}

// archive wraps the EPUB zip with path lookups.
type archive struct {
	files map[string]*zip.File
	lower map[string]*zip.File
}

func newArchive(r *zip.Reader) *archive {
	a := &archive{
		files: make(map[string]*zip.File, len(r.File)),
		lower: make(map[string]*zip.File, len(r.File)),
	}
	for _, f := range r.File {
		a.files[f.Name] = f
		a.lower[strings.ToLower(f.Name)] = f
	}
	return a
}

// read returns the content of name, matching case-insensitively when no
// exact entry exists.
func (a *archive) read(name string) ([]byte, error) {
	f, ok := a.files[name]
	if !ok {
		f, ok = a.lower[strings.ToLower(name)]
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, domain.ErrNotFound)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (a *archive) decode(name string, v any) error {
	data, err := a.read(name)
	if err != nil {
		return err
	}
	if err := xml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// rootfile locates the OPF package document.
func (a *archive) rootfile() (string, error) {
	var c container
	if err := a.decode("META-INF/container.xml", &c); err != nil {
		return "", err
	}
	for _, rf := range c.Rootfiles {
		if rf.FullPath != "" {
			return rf.FullPath, nil
		}
	}
	return "", fmt.Errorf("container.xml: no rootfile")
}

// resolve turns an href relative to base into an archive path, dropping any
// fragment.
func resolve(base, href string) string {
	href, _, _ = strings.Cut(href, "#")
	if unescaped, err := url.PathUnescape(href); err == nil {
		href = unescaped
	}
	return path.Clean(path.Join(path.Dir(base), href))
}
