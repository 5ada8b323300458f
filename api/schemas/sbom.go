package schemas

// -- SBOM Input Schemas --

// Document is the decoded SBOM handed to the analysis engine. Only the fields
// the engine reads are modelled; everything else in the source document
// (bomFormat, specVersion, metadata, ...) is ignored.
type Document struct {
	BOMFormat   string      `json:"bomFormat,omitempty"`
	SpecVersion string      `json:"specVersion,omitempty"`
	Components  []Component `json:"components"`
	// Dependencies is the CycloneDX top level relationship list. It is merged
	// into each component's declared dependencies before graph analysis.
	Dependencies []DependencyEdge `json:"dependencies,omitempty"`
}

// Component is a single declared software unit. It is parsed once from the
// input document and treated as immutable for the duration of an analysis.
type Component struct {
	BOMRef     string     `json:"bom-ref,omitempty"`
	Name       string     `json:"name"`
	Version    string     `json:"version"`
	PackageURL string     `json:"purl"`
	Properties []Property `json:"properties,omitempty"`
	// Dependencies holds package-url (or bom-ref) references to other
	// components in the same document.
	Dependencies []DependencyRef `json:"dependencies,omitempty"`
}

// Property is an out-of-band name/value pair attached to a component, such as
// an author email address.
type Property struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// DependencyRef points at another component by package-url or bom-ref.
type DependencyRef struct {
	Ref string `json:"ref"`
}

// DependencyEdge is a CycloneDX style "ref depends on these refs" entry.
type DependencyEdge struct {
	Ref       string   `json:"ref"`
	DependsOn []string `json:"dependsOn,omitempty"`
}

// Well known property names read from component metadata.
const (
	PropertyAuthorEmail     = "author_email"
	PropertyMaintainerEmail = "maintainer_email"
	PropertyOrigin          = "origin"
)

// Property returns the value of the last property with the given name, and
// whether any was present. Later entries override earlier ones.
func (c Component) Property(name string) (string, bool) {
	value, found := "", false
	for _, p := range c.Properties {
		if p.Name == name {
			value, found = p.Value, true
		}
	}
	return value, found
}
