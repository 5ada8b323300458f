package analysis

import (
	"strings"

	"github.com/package-url/packageurl-go"

	"github.com/xkilldash9x/sbomrisk/api/schemas"
)

var ecosystemsByType = map[string]schemas.Ecosystem{
	packageurl.TypePyPi:  schemas.EcosystemPyPI,
	packageurl.TypeNPM:   schemas.EcosystemNPM,
	packageurl.TypeMaven: schemas.EcosystemMaven,
	packageurl.TypeNuget: schemas.EcosystemNuGet,
}

// ClassifyEcosystem maps a package-url to its ecosystem. Strings the purl
// parser rejects are still classified by their "pkg:<type>/" prefix.
func ClassifyEcosystem(purl string) schemas.Ecosystem {
	purl = strings.TrimSpace(purl)
	if purl == "" {
		return schemas.EcosystemOther
	}

	if parsed, err := packageurl.FromString(purl); err == nil {
		if eco, ok := ecosystemsByType[strings.ToLower(parsed.Type)]; ok {
			return eco
		}
		return schemas.EcosystemOther
	}

	lower := strings.ToLower(purl)
	for typ, eco := range ecosystemsByType {
		if strings.HasPrefix(lower, "pkg:"+typ+"/") {
			return eco
		}
	}
	return schemas.EcosystemOther
}
