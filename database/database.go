package database

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"chatwave-api/models"
)

func Initialize(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(databaseURL), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Warn),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
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
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	if err := addCustomIndexes(db); err != nil {
		return fmt.Errorf("failed to add custom indexes: %w", err)
	}

	return nil
}

func addCustomIndexes(db *gorm.DB) error {
	// Conversation listing: direct threads page on the participant pair,
	// group threads on the receiver.
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_messages_receiver_created ON messages(receiver_type, receiver_id, created_at DESC)").Error; err != nil {
		fmt.Printf("Warning: Could not create index for messages receiver: %v\n", err)
	}

	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_messages_sender_receiver ON messages(sender_id, receiver_id)").Error; err != nil {
		fmt.Printf("Warning: Could not create index for messages participants: %v\n", err)
	}

	// Pending request lookups by owner.
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_friend_requests_owner_status ON friend_requests(owner_id, direction, status)").Error; err != nil {
		fmt.Printf("Warning: Could not create index for friend_requests: %v\n", err)
	}

	return nil
}

// SeedData can be used to populate the database with initial data for development/testing
func SeedData(db *gorm.DB) error {
	var userCount int64
	db.Model(&models.User{}).Count(&userCount)

	if userCount > 0 {
		fmt.Println("Database already has data, skipping seed")
		return nil
	}

	testUsers := []models.User{
		{
			ID:       "user-1",
			Name:     "John Doe",
			Handle:   "john_doe",
			Email:    "john@example.com",
			Password: "$2a$10$dummy", // This should be properly hashed in real scenarios
			Status:   models.UserStatusActive,
		},
		{
			ID:       "user-2",
			Name:     "Jane Smith",
			Handle:   "jane_smith",
			Email:    "jane@example.com",
			Password: "$2a$10$dummy",
			Status:   models.UserStatusActive,
		},
	}

	for _, user := range testUsers {
		if err := db.Create(&user).Error; err != nil {
			fmt.Printf("Warning: Could not create test user %s: %v\n", user.Handle, err)
		}
	}

	fmt.Println("Database seeded with test data")
	return nil
}
