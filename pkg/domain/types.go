package domain

import "time"

// Collection names a record collection in the document store.
type Collection string

const (
	CollectionContacts     Collection = "contacts"
	CollectionApplications Collection = "applications"
	CollectionBlogPosts    Collection = "blog_posts"
)

// StatusPending is the status every submission starts in.
const StatusPending = "pending"

const (
	DefaultAuthor   = "Rushabh Ventures Team"
	DefaultReadTime = "5 min read"
)

// Submission is a contact inquiry or an IPO-evaluation application.
// Email and Message are only populated for contacts.
type Submission struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	CompanyName    string    `json:"company_name"`
	AnnualTurnover *string   `json:"annual_turnover"`
	MobileNumber   string    `json:"mobile_number"`
	Email          *string   `json:"email,omitempty"`
	Message        *string   `json:"message,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	Status         string    `json:"status"`
	Notes          string    `json:"notes"`
}

// SubmissionPatch lists the only fields an admin may change on a submission.
// Nil means "leave untouched".
type SubmissionPatch struct {
	Status *string `json:"status,omitempty"`
	Notes  *string `json:"notes,omitempty"`
}

// Empty reports whether the patch carries no recognised field.
func (p SubmissionPatch) Empty() bool {
	return p.Status == nil && p.Notes == nil
}

type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// BlogPost is keyed by Slug; ID is internal.
type BlogPost struct {
	ID       string `json:"id"`
	Slug     string `json:"slug"`
	Title    string `json:"title"`
	Excerpt  string `json:"excerpt"`
	Content  string `json:"content"`
	Author   string `json:"author"`
	Date     string `json:"date"`
	ReadTime string `json:"read_time"`
	Category string `json:"category"`
	Image    string `json:"image"`
	FAQs     []FAQ  `json:"faqs"`

	// CreatedAt orders posts created on the same date.
	CreatedAt time.Time `json:"-"`
}

// PostPatch carries the mutable fields of a blog post. Nil means untouched.
// FAQs uses a flag because nil is also a meaningful value ("no FAQ section").
type PostPatch struct {
	Slug     *string
	Title    *string
	Excerpt  *string
	Content  *string
	Author   *string
	ReadTime *string
	Category *string
	Image    *string
	SetFAQs  bool
	FAQs     []FAQ
}

type FileType string

const (
	FileTypeImage    FileType = "image"
	FileTypeDocument FileType = "document"
	FileTypeOther    FileType = "other"
)

// UploadedFile describes one object in the file store.
type UploadedFile struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	Type      FileType  `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	URL       string    `json:"url"`
}

type SubmissionCounts struct {
	Total   int64 `json:"total"`
	Pending int64 `json:"pending"`
}

// DashboardStats is the admin dashboard snapshot. Counts may come from
// slightly different instants.
type DashboardStats struct {
	Contacts           SubmissionCounts `json:"contacts"`
	Applications       SubmissionCounts `json:"applications"`
	BlogPosts          int64            `json:"blog_posts"`
	Files              int64            `json:"files"`
	RecentContacts     []Submission     `json:"recent_contacts"`
	RecentApplications []Submission     `json:"recent_applications"`
}
