package canvas

import "time"

// DocumentStatus tracks the publication state of a document
type DocumentStatus string

const (
	StatusDraft     DocumentStatus = "draft"
	StatusPublished DocumentStatus = "published"
)

// Document is the persisted shape of a page: sections of rows of widgets.
// The element tree is a flattened, id-indexed projection of the same data.
type Document struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Root        Element        `json:"root"`
	Sections    []Section      `json:"sections"`
	Status      DocumentStatus `json:"status"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	PublishedAt *time.Time     `json:"publishedAt,omitempty"`
}

// Section is a direct child of the root
type Section struct {
	Element Element `json:"element"`
	Rows    []Row   `json:"rows"`
}

// Row is a direct child of a section
type Row struct {
	Element Element  `json:"element"`
	Widgets []Widget `json:"widgets"`
}

// Widget is any element below a row, nested arbitrarily
type Widget struct {
	Element  Element  `json:"element"`
	Children []Widget `json:"children,omitempty"`
}

// DocumentSummary is the list view of a stored document
type DocumentSummary struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Status      DocumentStatus `json:"status"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	PublishedAt *time.Time     `json:"publishedAt,omitempty"`
}
