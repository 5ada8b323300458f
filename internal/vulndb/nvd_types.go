package vulndb

// Wire types for the subset of the NVD CVE API 2.0 response that the client
// reads. Scores are float64, timestamps stay strings.

type nvdResponse struct {
	ResultsPerPage  int                `json:"resultsPerPage"`
	StartIndex      int                `json:"startIndex"`
	TotalResults    int                `json:"totalResults"`
	Vulnerabilities []nvdVulnerability `json:"vulnerabilities"`
}

type nvdVulnerability struct {
	CVE nvdCVE `json:"cve"`
}

type nvdCVE struct {
	ID           string         `json:"id"`
	Published    string         `json:"published"`
	LastModified string         `json:"lastModified"`
	VulnStatus   string         `json:"vulnStatus"`
	Descriptions []nvdLangValue `json:"descriptions"`
	Metrics      nvdMetrics     `json:"metrics"`
}

type nvdLangValue struct {
	Lang  string `json:"lang"`
	Value string `json:"value"`
}

type nvdMetrics struct {
	CvssMetricV40 []nvdCvssV3x `json:"cvssMetricV40"`
	CvssMetricV31 []nvdCvssV3x `json:"cvssMetricV31"`
	CvssMetricV30 []nvdCvssV3x `json:"cvssMetricV30"`
	CvssMetricV2  []nvdCvssV2  `json:"cvssMetricV2"`
}

// nvdCvssV3x covers v3.0, v3.1 and v4.0; the fields read here share a shape.
type nvdCvssV3x struct {
	Source   string      `json:"source"`
	Type     string      `json:"type"`
	CvssData nvdCvssData `json:"cvssData"`
}

type nvdCvssData struct {
	Version      string  `json:"version"`
	VectorString string  `json:"vectorString"`
	BaseScore    float64 `json:"baseScore"`
	BaseSeverity string  `json:"baseSeverity"`
}

// v2 carries its severity label on the metric, not in cvssData.
type nvdCvssV2 struct {
	Source       string      `json:"source"`
	Type         string      `json:"type"`
	BaseSeverity string      `json:"baseSeverity"`
	CvssData     nvdCvssData `json:"cvssData"`
}
