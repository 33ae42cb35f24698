package crawler

import "time"

// Response is a fetched page or file.
type Response struct {
	// URL is the final URL after redirects.
	URL         string
	StatusCode  int
	Text        string
	Body        []byte
	ContentType string
}

// AssetKind selects the sub-tree an artifact is stored under.
type AssetKind string

// Supported asset kinds.
const (
	AssetHTML  AssetKind = "html"
	AssetPDF   AssetKind = "pdf"
	AssetImage AssetKind = "image"
	AssetXML   AssetKind = "xml"
)

// Case is one court decision, keyed by the URL of its detail page.
type Case struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	URL         string    `json:"url" gorm:"size:1000;uniqueIndex;not null"`
	Title       string    `json:"title" gorm:"size:1000"`
	CaseNumber  string    `json:"case_number" gorm:"size:255;index"`
	Court       string    `json:"court" gorm:"size:255;index"`
	Parties     string    `json:"parties" gorm:"size:2000"`
	Judges      string    `json:"judges" gorm:"size:1000"`
	Date        string    `json:"date" gorm:"size:64"`
	Citation    string    `json:"citation" gorm:"size:255"`
	Counsel     string    `json:"counsel" gorm:"size:1000"`
	Summary     *string   `json:"summary,omitempty" gorm:"type:text"`
	ContentText string    `json:"content_text" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Document is a downloaded file attached to a Case.
type Document struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	CaseID      uint      `json:"case_id" gorm:"not null;index"`
	Case        *Case     `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	FilePath    string    `json:"file_path" gorm:"size:1000;not null"`
	URL         string    `json:"url" gorm:"size:1000"`
	ContentType string    `json:"content_type" gorm:"size:255"`
	CreatedAt   time.Time `json:"created_at"`
}

// Image is a downloaded image attached to a Case.
type Image struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CaseID    uint      `json:"case_id" gorm:"not null;index"`
	Case      *Case     `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	FilePath  string    `json:"file_path" gorm:"size:1000;not null"`
	URL       string    `json:"url" gorm:"size:1000"`
	AltText   string    `json:"alt_text" gorm:"size:1000"`
	CreatedAt time.Time `json:"created_at"`
}

// CaseParsed is the transient result of extracting a detail page.
type CaseParsed struct {
	URL         string
	Title       string
	CaseNumber  string
	Court       string
	Parties     string
	Judges      string
	Date        string
	Citation    string
	Counsel     string
	ContentText string
	PDFLinks    []string
	ImageLinks  []string
	// ImageAlt maps an image link to its alternative text, when present.
	ImageAlt map[string]string
}

// Stage names the step of a crawl where an item was skipped.
type Stage string

// Crawl stages recorded on skipped items.
const (
	StageListing    Stage = "listing"
	StageDetail     Stage = "detail"
	StageSnapshot   Stage = "snapshot"
	StageAsset      Stage = "asset"
	StageEnrichment Stage = "enrichment"
	StageSearch     Stage = "search"
)

// Skip records one item a crawl gave up on without failing the run.
type Skip struct {
	Stage  Stage  `json:"stage"`
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// Report summarises one top-level crawl operation.
type Report struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	CaseIDs    []uint    `json:"case_ids"`
	Pages      int       `json:"pages"`
	Skipped    []Skip    `json:"skipped,omitempty"`
}

// AddSkip appends a skipped item to the report.
func (r *Report) AddSkip(stage Stage, url string, err error) {
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	r.Skipped = append(r.Skipped, Skip{Stage: stage, URL: url, Reason: reason})
}

// AddCase appends id unless it is already present.
func (r *Report) AddCase(id uint) {
	for _, existing := range r.CaseIDs {
		if existing == id {
			return
		}
	}
	r.CaseIDs = append(r.CaseIDs, id)
}

// JobKind selects which entry point a batch job runs.
type JobKind string

// Batch job kinds.
const (
	JobURL     JobKind = "url"
	JobListing JobKind = "listing"
	JobCase    JobKind = "case"
	JobSearch  JobKind = "search"
)

// Job is one top-level crawl request handed to the batch workers.
type Job struct {
	ID       string  `json:"id"`
	Kind     JobKind `json:"kind"`
	Target   string  `json:"target"`
	MaxPages int     `json:"max_pages,omitempty"`
	Deep     bool    `json:"deep"`
}

// JobStatus is the outcome of a batch job.
type JobStatus string

// Batch job outcomes.
const (
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCanceled  JobStatus = "canceled"
)

// JobResult pairs a finished job with its report or error.
type JobResult struct {
	Job    Job       `json:"job"`
	Status JobStatus `json:"status"`
	Report *Report   `json:"report,omitempty"`
	Err    string    `json:"error,omitempty"`
}
