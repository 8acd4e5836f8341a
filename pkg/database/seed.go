package database

import (
	"errors"
	"log"

	"libraryms/pkg/models"

	"gorm.io/gorm"
)

// Seed inserts demo users and catalog entries that are not present yet.
// Existing rows are left untouched.
func Seed(db *gorm.DB) error {
	users := []models.User{
		{Username: "admin", Password: "admin", FullName: "Library Admin", Role: models.RoleAdmin},
		{Username: "alice", Password: "alice", FullName: "Alice Reader", Role: models.RoleMember},
		{Username: "bob", Password: "bob", FullName: "Bob Reader", Role: models.RoleMember},
	}
	for _, u := range users {
		var existing models.User
		err := db.Where("username = ?", u.Username).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := db.Create(&u).Error; err != nil {
				return err
			}
			log.Printf("Created seed user: %s", u.Username)
			continue
		}
		if err != nil {
			return err
		}
	}

	items := []struct {
		title, isbn string
		copies      int
		details     models.Details
	}{
		{"The Go Programming Language", "978-0134190440", 2,
			models.BookDetails{Author: "Alan Donovan, Brian Kernighan", Publisher: "Addison-Wesley", Pages: 380, Shelf: "A1"}},
		{"Kind of Blue", "", 1,
			models.CDDetails{Artist: "Miles Davis", Tracks: 5, DurationMinutes: 46, Shelf: "M3"}},
		{"Stalker", "", 1,
			models.DVDDetails{Director: "Andrei Tarkovsky", DurationMinutes: 161, Shelf: "V2"}},
		{"Designing Data-Intensive Applications", "978-1449373320", 3,
			models.EBookDetails{Author: "Martin Kleppmann", FileFormat: "EPUB", FileSizeMB: 12}},
		{"Communications of the ACM", "", 1,
			models.MagazineDetails{Publisher: "ACM", IssueNumber: 67, Shelf: "P1"}},
	}
	for _, it := range items {
		var existing models.Item
		err := db.Where("title = ?", it.title).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			item := models.Item{Title: it.title, ISBN: it.isbn, TotalCopies: it.copies, AvailableCopies: it.copies}
			item.SetDetails(it.details)
			if err := db.Create(&item).Error; err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
	}
	log.Println("Library test data seeded")
	return nil
}
