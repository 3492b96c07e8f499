package database

import (
	"github.com/sarthaktajane07/DineFlow/models"
	"gorm.io/gorm"
)

// Models lists every persisted entity.
var Models = []interface{}{
	&models.User{},
	&models.Table{},
	&models.WaitlistEntry{},
	&models.ServiceHistory{},
	&models.ActivityLog{},
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models...)
}
