package models

import "time"

// CaseStatus is the moderation state of a gallery case
type CaseStatus string

const (
	StatusPending  CaseStatus = "pending"
	StatusApproved CaseStatus = "approved"
)

// ImageSet references the stored original and its responsive variants.
// Responsive is keyed by breakpoint ("320w", "768w", "1200w").
type ImageSet struct {
	Original   string            `json:"original"`
	Responsive map[string]string `json:"responsive"`
}

// Case is a before/after treatment case awaiting or holding approval
type Case struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Category       string     `json:"category"`
	Description    string     `json:"description"`
	TreatmentType  string     `json:"treatmentType"`
	BeforeImages   ImageSet   `json:"beforeImages"`
	AfterImages    ImageSet   `json:"afterImages"`
	Status         CaseStatus `json:"status"`
	UploadedAt     time.Time  `json:"uploadedAt"`
	UploadedBy     string     `json:"uploadedBy"`
	PatientConsent bool       `json:"patientConsent"`
	ApprovedAt     *time.Time `json:"approvedAt,omitempty"`
	ApprovedBy     string     `json:"approvedBy,omitempty"`
}

// PublicCase is the projection safe for unauthenticated listing.
// No uploader identity, consent flag, or approval audit fields.
type PublicCase struct {
	ID                    string            `json:"id"`
	Title                 string            `json:"title"`
	Category              string            `json:"category"`
	Description           string            `json:"description"`
	TreatmentType         string            `json:"treatmentType"`
	BeforeImage           string            `json:"beforeImage"`
	AfterImage            string            `json:"afterImage"`
	BeforeImageResponsive map[string]string `json:"beforeImageResponsive"`
	AfterImageResponsive  map[string]string `json:"afterImageResponsive"`
}

// Public returns the public-safe projection of a case
func (c *Case) Public() PublicCase {
	return PublicCase{
		ID:                    c.ID,
		Title:                 c.Title,
		Category:              c.Category,
		Description:           c.Description,
		TreatmentType:         c.TreatmentType,
		BeforeImage:           c.BeforeImages.Original,
		AfterImage:            c.AfterImages.Original,
		BeforeImageResponsive: c.BeforeImages.Responsive,
		AfterImageResponsive:  c.AfterImages.Responsive,
	}
}

// CaseMetadata carries the free-text fields supplied at upload time
type CaseMetadata struct {
	Title          string
	Category       string
	Description    string
	TreatmentType  string
	UploadedBy     string
	PatientConsent bool
	SessionID      string
}
