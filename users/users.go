package users

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Permission is the access level a user is granted at signup
type Permission string

const (
	PermissionUser  Permission = "user"  // Meeting participant
	PermissionAdmin Permission = "admin" // Meeting organizer
)

func (p Permission) Valid() bool {
	return p == PermissionUser || p == PermissionAdmin
}

type User struct {
	ID           string     `json:"userId"`                 // Unique identifier for the user
	FirstName    string     `json:"firstName"`              // First name of the user
	LastName     string     `json:"lastName"`               // Last name of the user
	Email        string     `json:"email"`                  // Lower-cased, unique
	MobileNumber string     `json:"mobileNumber,omitempty"` // Contact number
	CountryCode  string     `json:"countryCode,omitempty"`  // Dialling code for MobileNumber
	PasswordHash string     `json:"-"`                      // Hashed version of the user's password - never serialize
	Permissions  Permission `json:"permissions"`            // user or admin
	CreatedOn    time.Time  `json:"createdOn"`              // Date and time when the user registered

	// ValidationToken is the outstanding password reset token, empty when
	// no reset is pending
	ValidationToken string `json:"-"`
}

// Profile is what other users may see of a user: no contact details
type Profile struct {
	UserID      string     `json:"userId"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	Email       string     `json:"email"`
	Permissions Permission `json:"permissions"`
	CreatedOn   time.Time  `json:"createdOn"`
}

// Summary is the entry shown in an organizer's participant list
type Summary struct {
	UserID      string     `json:"userId"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	Email       string     `json:"email"`
	Permissions Permission `json:"permissions"`
}

func (u *User) Profile() Profile {
	return Profile{
		UserID:      u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Email:       u.Email,
		Permissions: u.Permissions,
		CreatedOn:   u.CreatedOn,
	}
}

func (u *User) Summary() Summary {
	return Summary{
		UserID:      u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Email:       u.Email,
		Permissions: u.Permissions,
	}
}

// IsAdmin reports whether the user organizes meetings
func (u *User) IsAdmin() bool {
	return u.Permissions == PermissionAdmin
}

// FullName joins the first and last names, skipping whichever is empty
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// PermissionFromLastName grants admin rights to users whose last name ends
// with "admin" or "Admin".
func PermissionFromLastName(lastName string) Permission {
	if strings.HasSuffix(lastName, "admin") || strings.HasSuffix(lastName, "Admin") {
		return PermissionAdmin
	}
	return PermissionUser
}

// NormalizeEmail lower-cases and trims an email address for storage and lookup
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks the address is a bare, well formed mailbox
func ValidateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return fmt.Errorf("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("email does not meet the requirement")
	}
	if !strings.Contains(addr.Address[strings.LastIndex(addr.Address, "@")+1:], ".") {
		return fmt.Errorf("email does not meet the requirement")
	}
	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
