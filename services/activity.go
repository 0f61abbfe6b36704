package services

import (
	"log"

	"gorm.io/gorm"

	"github.com/manga-store/manga-store-api/models"
)

// LogActivity records a back-office action in the audit trail. Failures are
// logged and swallowed: the audit trail never blocks the action itself.
func LogActivity(db *gorm.DB, actor *models.User, action, extra string) {
	entry := models.ActivityLog{
		Action: action,
		Extra:  extra,
	}
	if actor != nil {
		entry.ActorID = &actor.ID
		entry.ActorEmail = actor.Email
		entry.ActorName = actor.FirstName + " " + actor.LastName
	}
	if err := db.Create(&entry).Error; err != nil {
		log.Printf("Failed to record activity %q: %v", action, err)
	}
}
