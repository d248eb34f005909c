package book

import "time"

type Book struct {
	ID              int64     `json:"id" db:"id"`
	Name            string    `json:"name" db:"name"`
	Author          string    `json:"author" db:"author"`
	ISBN            string    `json:"isbn,omitempty" db:"isbn"`
	About           string    `json:"about,omitempty" db:"about"`
	ShortDetails    string    `json:"short_details,omitempty" db:"short_details"`
	CategoryID      *int64    `json:"category_id,omitempty" db:"category_id"`
	TotalCopies     int       `json:"total_copies" db:"total_copies"`
	AvailableCopies int       `json:"available_copies" db:"available_copies"`
	PublicationYear *int      `json:"publication_year,omitempty" db:"publication_year"`
	BookCoverURL    string    `json:"book_cover_url,omitempty" db:"book_cover_url"`
	PDFFileURL      string    `json:"pdf_file_url,omitempty" db:"pdf_file_url"`
	AudioFileURL    string    `json:"audio_file_url,omitempty" db:"audio_file_url"`
	IsFeatured      bool      `json:"is_featured" db:"is_featured"`
	BorrowCount     int64     `json:"borrow_count" db:"borrow_count"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

func (b *Book) Available() bool {
	return b.AvailableCopies > 0
}

// BookDTO carries the writable fields for create and edit.
type BookDTO struct {
	Name            string
	Author          string
	ISBN            string
	About           string
	ShortDetails    string
	CategoryID      *int64
	TotalCopies     int
	AvailableCopies int
	PublicationYear *int
	BookCoverURL    string
	PDFFileURL      string
	AudioFileURL    string
}

// ListFilter narrows the catalog listing; zero value means everything.
type ListFilter struct {
	CategoryID  *int64
	NonFeatured bool
	OnlyAvail   bool
}
