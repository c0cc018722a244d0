package database

import (
	"database/sql/driver"
	"fmt"
	"regexp"
	"strings"
	"time"
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]{1,100}$`)

// ValidUsername reports whether s only holds letters, digits and @.+-_
// and is at most 100 characters long
func ValidUsername(s string) bool {
	return usernamePattern.MatchString(s)
}

// AccountKind tags the single accounts table with the concrete account variant
type AccountKind string

const (
	AccountKindSubscriber AccountKind = "subscriber"
	AccountKindAdmin      AccountKind = "admin"
)

func (k AccountKind) Value() (driver.Value, error) {
	return string(k), nil
}

func (k *AccountKind) Scan(value interface{}) error {
	s, err := scanString(value, "AccountKind")
	*k = AccountKind(s)
	return err
}

// Role is the coarse permission level of an account
type Role string

const (
	RoleUser    Role = "USER"
	RoleAdmin   Role = "ADMIN"
	RoleVisitor Role = "VISITOR"
)

// Genre classifies a show
type Genre string

const (
	GenreRomance    Genre = "ROMANCE"
	GenreHorror     Genre = "HORROR"
	GenreHistorical Genre = "HISTORICAL"
	GenreBattle     Genre = "BATTLE"
	GenreComedy     Genre = "COMEDY"
	GenreDrama      Genre = "DRAMA"
)

// Genres lists every accepted genre in display order
var Genres = []Genre{GenreRomance, GenreHorror, GenreHistorical, GenreBattle, GenreComedy, GenreDrama}

// ParseGenre accepts a genre name in any case
func ParseGenre(s string) (Genre, bool) {
	g := Genre(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Genres {
		if g == known {
			return g, true
		}
	}
	return "", false
}

func (g Genre) Value() (driver.Value, error) {
	return string(g), nil
}

func (g *Genre) Scan(value interface{}) error {
	s, err := scanString(value, "Genre")
	*g = Genre(s)
	return err
}

// Colour labels a folder
type Colour string

const (
	ColourYellow Colour = "YELLOW"
	ColourBlue   Colour = "BLUE"
	ColourGreen  Colour = "GREEN"
)

// ParseColour accepts a colour name in any case
func ParseColour(s string) (Colour, bool) {
	c := Colour(strings.ToUpper(strings.TrimSpace(s)))
	switch c {
	case ColourYellow, ColourBlue, ColourGreen:
		return c, true
	}
	return "", false
}

func scanString(value interface{}, typeName string) (string, error) {
	switch s := value.(type) {
	case nil:
		return "", nil
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	default:
		return "", fmt.Errorf("cannot scan %T into %s", value, typeName)
	}
}

// =============================================================================
// ACCOUNTS
// =============================================================================

// DefaultProfilePicture is assigned to every new profile
const DefaultProfilePicture = "profile_pictures/default.webp"

// Account is the single identity table. Subscriber-only and admin-only
// columns are nullable so that each row carries exactly one variant.
type Account struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	Kind         AccountKind `gorm:"type:varchar(16);not null;index" json:"kind"`
	Role         Role        `gorm:"type:varchar(10);not null" json:"role"`
	Email        string      `gorm:"size:200;not null;uniqueIndex" json:"email"`
	PasswordHash string      `gorm:"size:100;not null" json:"-"`

	// Subscriber fields
	Username    *string    `gorm:"size:100;uniqueIndex" json:"username,omitempty"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	DateJoined  time.Time  `gorm:"not null" json:"date_joined"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
	IsAdmin     bool       `gorm:"not null" json:"is_admin"`
	IsActive    bool       `gorm:"not null;index" json:"is_active"`
	IsStaff     bool       `gorm:"not null" json:"is_staff"`
	IsSuperuser bool       `gorm:"not null" json:"is_superuser"`

	// Admin fields
	AdminName *string `gorm:"size:100;uniqueIndex" json:"admin_name,omitempty"`

	Profile   *Profile  `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE" json:"profile,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsSubscriber reports whether the account is an end-user account
func (a *Account) IsSubscriber() bool {
	return a.Kind == AccountKindSubscriber
}

// CanManageCatalog reports whether the account may edit shows and categories
func (a *Account) CanManageCatalog() bool {
	return a.Kind == AccountKindAdmin || a.IsStaff || a.IsSuperuser || a.IsAdmin
}

// DisplayName returns the username for subscribers and the admin name for admins
func (a *Account) DisplayName() string {
	switch {
	case a.Username != nil:
		return *a.Username
	case a.AdminName != nil:
		return *a.AdminName
	default:
		return a.Email
	}
}

// Profile extends an account with presentation data
type Profile struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	AccountID      uint      `gorm:"not null;uniqueIndex" json:"account_id"`
	ProfilePicture string    `gorm:"size:255;not null" json:"profile_picture"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// =============================================================================
// CATALOG
// =============================================================================

// Category groups shows under a unique slug derived from its name
type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Slug        string    `gorm:"size:120;not null;uniqueIndex" json:"slug"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Show is a catalog entry
type Show struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:500;not null;index" json:"title"`
	Description string    `gorm:"size:500" json:"description"`
	Year        int       `gorm:"not null" json:"year"`
	Genre       Genre     `gorm:"type:varchar(10);not null;index" json:"genre"`
	Popularity  float64   `gorm:"not null;default:0;index;check:chk_shows_popularity,popularity >= 0 AND popularity <= 9.99" json:"popularity"`
	PosterPath  string    `gorm:"size:255" json:"poster_path,omitempty"`
	VideoPath   string    `gorm:"size:255" json:"video_path,omitempty"`
	CategoryID  *uint     `gorm:"index" json:"category_id,omitempty"`
	Category    *Category `gorm:"constraint:OnDelete:SET NULL" json:"category,omitempty"`
	Seasons     []Season  `gorm:"foreignKey:ShowID;constraint:OnDelete:CASCADE" json:"seasons,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Season is an ordered group of episodes of a show
type Season struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ShowID    uint      `gorm:"not null;uniqueIndex:idx_season_show_number" json:"show_id"`
	Number    int       `gorm:"not null;uniqueIndex:idx_season_show_number" json:"number"`
	Title     string    `gorm:"size:200" json:"title"`
	Episodes  []Episode `gorm:"foreignKey:SeasonID;constraint:OnDelete:CASCADE" json:"episodes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Episode is a single playable item of a season
type Episode struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	SeasonID    uint      `gorm:"not null;uniqueIndex:idx_episode_season_number" json:"season_id"`
	Number      int       `gorm:"not null;uniqueIndex:idx_episode_season_number" json:"number"`
	Title       string    `gorm:"size:200;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	VideoPath   string    `gorm:"size:255" json:"video_path,omitempty"`
	Duration    int       `json:"duration"` // In seconds
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// =============================================================================
// PERSONALIZATION
// =============================================================================

// Favorite marks a show as a favourite of an account
type Favorite struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AccountID uint      `gorm:"not null;uniqueIndex:idx_favorite_account_show" json:"account_id"`
	ShowID    uint      `gorm:"not null;uniqueIndex:idx_favorite_account_show;index" json:"show_id"`
	Show      *Show     `gorm:"constraint:OnDelete:CASCADE" json:"show,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Folder is a named, coloured collection of shows owned by one account
type Folder struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AccountID uint      `gorm:"not null;uniqueIndex:idx_folder_owner_name" json:"account_id"`
	Name      string    `gorm:"size:30;not null;uniqueIndex:idx_folder_owner_name" json:"name"`
	Colour    Colour    `gorm:"type:varchar(10);not null" json:"colour"`
	Shows     []Show    `gorm:"many2many:folder_shows;constraint:OnDelete:CASCADE" json:"shows"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReviewRating is a subscriber's review of a show. One row per
// (account, show) pair; resubmitting updates it in place.
type ReviewRating struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AccountID uint      `gorm:"not null;uniqueIndex:idx_review_account_show" json:"account_id"`
	ShowID    uint      `gorm:"not null;uniqueIndex:idx_review_account_show;index" json:"show_id"`
	Account   *Account  `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Show      *Show     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Subject   string    `gorm:"size:100" json:"subject"`
	Review    string    `gorm:"size:500" json:"review"`
	Rating    float64   `gorm:"not null;check:chk_review_ratings_rating,rating >= 0.5 AND rating <= 5" json:"rating"`
	IP        string    `gorm:"size:45" json:"-"`
	Status    bool      `gorm:"not null;index" json:"status"`
	Author    string    `gorm:"-" json:"author,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AllModels lists every table owned by the application schema
func AllModels() []interface{} {
	return []interface{}{
		&Account{},
		&Profile{},
		&Category{},
		&Show{},
		&Season{},
		&Episode{},
		&Favorite{},
		&Folder{},
		&ReviewRating{},
	}
}
