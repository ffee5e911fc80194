package entities

import (
	"time"
)

// User is a registered site user. Credentials are stored as a bcrypt hash.
type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Username     string     `gorm:"uniqueIndex;size:100;not null" json:"username"`
	Email        string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string     `gorm:"size:100;not null" json:"-"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`

	// Account lockout tracking
	FailedLoginCount int        `gorm:"default:0" json:"-"`
	LockedUntil      *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Book is a locally cached copy of a catalog volume. Rows are created
// lazily the first time any user favorites the volume and are never
// updated or deleted afterwards; stale metadata is accepted.
type Book struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ExternalID  string    `gorm:"uniqueIndex;size:64;not null" json:"external_id"`
	Title       string    `gorm:"size:512;not null" json:"title"`
	Author      string    `gorm:"size:256;not null" json:"author"`
	Description string    `gorm:"type:text;not null" json:"description"`
	CoverURL    string    `gorm:"size:2048;not null" json:"cover_url"`
	CreatedAt   time.Time `json:"created_at"`
}

// Favorite links a user to a cached book by the catalog's external id.
// BookTitle is a snapshot taken at add time and is intentionally not kept
// in sync with the cache row.
//
// The composite unique index closes the concurrent double-add race: two
// requests may both pass the application-level duplicate check, but only
// one insert can win.
type Favorite struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	UserID         uint   `gorm:"not null;uniqueIndex:uq_favorites_user_book;index" json:"user_id"`
	BookExternalID string `gorm:"not null;uniqueIndex:uq_favorites_user_book;size:64" json:"book_external_id"`
	BookTitle      string `gorm:"size:512;not null" json:"book_title"`

	User User `gorm:"foreignKey:UserID" json:"-"`
	Book Book `gorm:"foreignKey:BookExternalID;references:ExternalID" json:"book,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (User) TableName() string {
	return "users"
}

func (Book) TableName() string {
	return "books"
}

func (Favorite) TableName() string {
	return "favorites"
}
