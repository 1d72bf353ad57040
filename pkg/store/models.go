package store

import (
	"time"

	"gorm.io/datatypes"
)

// SubmissionRow is the column set shared by the contacts and applications
// tables. Queries address the table by name; migrations use the typed
// models below so each table gets its own index names.
type SubmissionRow struct {
	ID             string `gorm:"primaryKey"`
	Name           string `gorm:"not null"`
	CompanyName    string `gorm:"not null"`
	AnnualTurnover *string
	MobileNumber   string `gorm:"not null"`
	Email          *string
	Message        *string   `gorm:"type:text"`
	Status         string    `gorm:"not null;index"`
	Notes          string    `gorm:"type:text"`
	CreatedAt      time.Time `gorm:"not null;index"`
}

type ContactModel struct {
	SubmissionRow
}

func (ContactModel) TableName() string { return "contacts" }

type ApplicationModel struct {
	SubmissionRow
}

func (ApplicationModel) TableName() string { return "applications" }

type BlogPostModel struct {
	ID        string `gorm:"primaryKey"`
	Slug      string `gorm:"uniqueIndex;not null"`
	Title     string `gorm:"not null"`
	Excerpt   string `gorm:"type:text"`
	Content   string `gorm:"type:text"`
	Author    string
	Date      string `gorm:"not null;index"`
	ReadTime  string
	Category  string `gorm:"index"`
	Image     string
	FAQs      datatypes.JSON `gorm:"column:faqs;type:jsonb"`
	CreatedAt time.Time      `gorm:"not null"`
}

func (BlogPostModel) TableName() string { return "blog_posts" }
