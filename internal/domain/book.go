package domain

import "time"

// Language is the language a book is published in.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageFrench  Language = "fr"
)

// Valid reports whether l is a supported language.
func (l Language) Valid() bool {
	return l == LanguageEnglish || l == LanguageFrench
}

// PublicationDateLayout is the wire and storage layout of Book.PublicationDate.
const PublicationDateLayout = "2006-01-02"

// Book is a catalogue entry.
type Book struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	AuthorID        int64     `json:"author_id"`
	PublicationDate string    `json:"publication_date"`
	NumberOfPages   int       `json:"number_of_pages"`
	Language        Language  `json:"language"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// BookPatch carries optional book updates; nil fields are left unchanged.
type BookPatch struct {
	Title           *string   `json:"title"`
	AuthorID        *int64    `json:"author_id"`
	PublicationDate *string   `json:"publication_date"`
	NumberOfPages   *int      `json:"number_of_pages"`
	Language        *Language `json:"language"`
}

// Apply copies the non-nil fields of p onto b.
func (p BookPatch) Apply(b *Book) {
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.AuthorID != nil {
		b.AuthorID = *p.AuthorID
	}
	if p.PublicationDate != nil {
		b.PublicationDate = *p.PublicationDate
	}
	if p.NumberOfPages != nil {
		b.NumberOfPages = *p.NumberOfPages
	}
	if p.Language != nil {
		b.Language = *p.Language
	}
}

// BookFilter narrows book listings. Zero values do not filter.
type BookFilter struct {
	Search          string
	PublicationDate string
	Language        Language
}
