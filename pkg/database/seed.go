package database

import (
	"github.com/surdiana/auth-service/internal/model"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultAdmin defines the default admin user credentials
type DefaultAdmin struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// GetDefaultAdmin returns the default admin user
func GetDefaultAdmin() DefaultAdmin {
	return DefaultAdmin{
		FirstName: "Admin",
		LastName:  "Root",
		Email:     "admin@auth.local",
		Password:  "Admin@123", // Change this in production!
	}
}

// Seed creates initial data for the database
func Seed(db *gorm.DB) error {
	return SeedAdminUser(db)
}

// SeedAdminUser creates the default admin user if not exists
func SeedAdminUser(db *gorm.DB) error {
	admin := GetDefaultAdmin()

	var existingUser model.User
	result := db.Where("email = ?", admin.Email).First(&existingUser)

	if result.Error == nil {
		// User already exists, skip seeding
		return nil
	}

	if result.Error != gorm.ErrRecordNotFound {
		return result.Error
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(admin.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user := model.User{
		FirstName:     admin.FirstName,
		LastName:      admin.LastName,
		Email:         admin.Email,
		Password:      string(hashedPassword),
		Status:        model.StatusActive,
		EmailVerified: true,
		Roles: []model.UserRole{
			{Role: model.RoleUser},
			{Role: model.RoleAdmin},
		},
	}

	return db.Create(&user).Error
}
