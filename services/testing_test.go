package services

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"chatwave-api/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Friend{},
		&models.FriendRequest{},
		&models.UserBlock{},
		&models.Message{},
		&models.MessageSeen{},
		&models.Reaction{},
		&models.Group{},
		&models.GroupMember{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func createUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()

	user := models.User{
		ID:       uuid.New().String(),
		Name:     name,
		Handle:   name + "_" + uuid.New().String()[:8],
		Email:    name + "-" + uuid.New().String()[:8] + "@example.com",
		Password: "hashed",
		Status:   models.UserStatusActive,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user %s: %v", name, err)
	}
	return &user
}

func makeFriends(t *testing.T, db *gorm.DB, social *SocialService, a, b *models.User) {
	t.Helper()

	request, _, err := social.SendRequest(a.ID, b.ID)
	if err != nil {
		t.Fatalf("failed to send friend request: %v", err)
	}
	if _, _, err := social.Respond(b.ID, request.RequestID, true); err != nil {
		t.Fatalf("failed to accept friend request: %v", err)
	}
}
