package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/seatsweep/seatsweep/app/models"
	"github.com/seatsweep/seatsweep/internal/pkg/config"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

var DB *gorm.DB

// SetupDatabase connects to MySQL with bounded retries and migrates the
// schema. TranslateError is enabled so unique-key violations surface as
// gorm.ErrDuplicatedKey, which the event claim manager relies on.
func SetupDatabase(cfg *config.Config) error {
	var err error
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBHost,
		"3306",
		cfg.DBName,
	)

	for i := 0; i < maxRetries; i++ {
		DB, err = gorm.Open(mysql.New(mysql.Config{
			DSN:                       dsn,
			DefaultStringSize:         256,
			DisableDatetimePrecision:  true,
			DontSupportRenameIndex:    true,
			DontSupportRenameColumn:   true,
			SkipInitializeWithVersion: false,
		}), &gorm.Config{TranslateError: true})
		if err == nil {
			return DB.AutoMigrate(
				&models.Tenant{},
				&models.GuestAuditRecord{},
				&models.AuditRunSnapshot{},
				&models.Subscription{},
				&models.PlanMapping{},
				&models.EventClaim{},
			)
		}

		log.Printf("Failed to connect to database (try %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}

	return err
}

// GetDB returns the shared GORM handle.
func GetDB() *gorm.DB {
	return DB
}
