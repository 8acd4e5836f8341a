package models

import (
	"encoding/json"
	"fmt"
	"time"
)

type ItemKind string

const (
	KindBook     ItemKind = "BOOK"
	KindCD       ItemKind = "CD"
	KindDVD      ItemKind = "DVD"
	KindEBook    ItemKind = "EBOOK"
	KindMagazine ItemKind = "MAGAZINE"
)

func (k ItemKind) Valid() bool {
	switch k {
	case KindBook, KindCD, KindDVD, KindEBook, KindMagazine:
		return true
	}
	return false
}

// Item is the shared catalog record. The kind-specific columns are only
// meaningful for their kind; use Details and SetDetails instead of reading
// them directly.
type Item struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Kind            ItemKind  `gorm:"size:20;not null;index" json:"kind"`
	Title           string    `gorm:"size:255;not null" json:"title"`
	ISBN            string    `gorm:"size:32;index" json:"isbn"`
	TotalCopies     int       `gorm:"not null;check:total_copies >= 0" json:"totalCopies"`
	AvailableCopies int       `gorm:"not null;check:available_copies >= 0" json:"availableCopies"`
	AverageRating   float64   `gorm:"not null;default:0" json:"averageRating"`
	Reviews         []Review  `gorm:"foreignKey:ItemID" json:"reviews,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`

	Author          string `gorm:"size:160" json:"-"`
	Publisher       string `gorm:"size:160" json:"-"`
	Pages           int    `json:"-"`
	Artist          string `gorm:"size:160" json:"-"`
	Director        string `gorm:"size:160" json:"-"`
	Tracks          int    `json:"-"`
	DurationMinutes int    `json:"-"`
	FileFormat      string `gorm:"size:20" json:"-"`
	FileSizeMB      int    `json:"-"`
	IssueNumber     int    `json:"-"`
	Shelf           string `gorm:"size:40" json:"-"`
}

// Details is the kind-specific payload of an Item. The set of
// implementations is closed.
type Details interface {
	Kind() ItemKind
	details()
}

type BookDetails struct {
	Author    string `json:"author"`
	Publisher string `json:"publisher"`
	Pages     int    `json:"pages"`
	Shelf     string `json:"shelf"`
}

type CDDetails struct {
	Artist          string `json:"artist"`
	Tracks          int    `json:"tracks"`
	DurationMinutes int    `json:"durationMinutes"`
	Shelf           string `json:"shelf"`
}

type DVDDetails struct {
	Director        string `json:"director"`
	DurationMinutes int    `json:"durationMinutes"`
	Shelf           string `json:"shelf"`
}

type EBookDetails struct {
	Author     string `json:"author"`
	FileFormat string `json:"fileFormat"`
	FileSizeMB int    `json:"fileSizeMb"`
}

type MagazineDetails struct {
	Publisher   string `json:"publisher"`
	IssueNumber int    `json:"issueNumber"`
	Shelf       string `json:"shelf"`
}

func (BookDetails) Kind() ItemKind     { return KindBook }
func (CDDetails) Kind() ItemKind       { return KindCD }
func (DVDDetails) Kind() ItemKind      { return KindDVD }
func (EBookDetails) Kind() ItemKind    { return KindEBook }
func (MagazineDetails) Kind() ItemKind { return KindMagazine }

func (BookDetails) details()     {}
func (CDDetails) details()       {}
func (DVDDetails) details()      {}
func (EBookDetails) details()    {}
func (MagazineDetails) details() {}

// IsPhysical reports whether the item occupies a shelf. eBooks do not.
func (i Item) IsPhysical() bool {
	return i.Kind != KindEBook
}

// Details returns the payload for the item's kind, or nil for an unknown kind.
func (i Item) Details() Details {
	switch i.Kind {
	case KindBook:
		return BookDetails{Author: i.Author, Publisher: i.Publisher, Pages: i.Pages, Shelf: i.Shelf}
	case KindCD:
		return CDDetails{Artist: i.Artist, Tracks: i.Tracks, DurationMinutes: i.DurationMinutes, Shelf: i.Shelf}
	case KindDVD:
		return DVDDetails{Director: i.Director, DurationMinutes: i.DurationMinutes, Shelf: i.Shelf}
	case KindEBook:
		return EBookDetails{Author: i.Author, FileFormat: i.FileFormat, FileSizeMB: i.FileSizeMB}
	case KindMagazine:
		return MagazineDetails{Publisher: i.Publisher, IssueNumber: i.IssueNumber, Shelf: i.Shelf}
	}
	return nil
}

// SetDetails sets the kind and the kind-specific columns, clearing columns
// that belong to other kinds.
func (i *Item) SetDetails(d Details) {
	i.Author, i.Publisher, i.Artist, i.Director = "", "", "", ""
	i.Pages, i.Tracks, i.DurationMinutes, i.FileSizeMB, i.IssueNumber = 0, 0, 0, 0, 0
	i.FileFormat, i.Shelf = "", ""

	switch v := d.(type) {
	case BookDetails:
		i.Author, i.Publisher, i.Pages, i.Shelf = v.Author, v.Publisher, v.Pages, v.Shelf
	case CDDetails:
		i.Artist, i.Tracks, i.DurationMinutes, i.Shelf = v.Artist, v.Tracks, v.DurationMinutes, v.Shelf
	case DVDDetails:
		i.Director, i.DurationMinutes, i.Shelf = v.Director, v.DurationMinutes, v.Shelf
	case EBookDetails:
		i.Author, i.FileFormat, i.FileSizeMB = v.Author, v.FileFormat, v.FileSizeMB
	case MagazineDetails:
		i.Publisher, i.IssueNumber, i.Shelf = v.Publisher, v.IssueNumber, v.Shelf
	}
	if d != nil {
		i.Kind = d.Kind()
	}
}

// DecodeDetails parses a JSON payload into the variant for kind.
func DecodeDetails(kind ItemKind, raw json.RawMessage) (Details, error) {
	var (
		d   Details
		err error
	)
	switch kind {
	case KindBook:
		var v BookDetails
		err = decodeOptional(raw, &v)
		d = v
	case KindCD:
		var v CDDetails
		err = decodeOptional(raw, &v)
		d = v
	case KindDVD:
		var v DVDDetails
		err = decodeOptional(raw, &v)
		d = v
	case KindEBook:
		var v EBookDetails
		err = decodeOptional(raw, &v)
		d = v
	case KindMagazine:
		var v MagazineDetails
		err = decodeOptional(raw, &v)
		d = v
	default:
		return nil, fmt.Errorf("unknown item kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s details: %w", kind, err)
	}
	return d, nil
}

func decodeOptional(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}
