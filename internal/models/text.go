package models

import (
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// LongText holds page HTML and opaque payloads. Plain TEXT caps at 64 KiB on
// MySQL, so it is widened there; other dialects have unbounded text.
type LongText string

func (LongText) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	return textType(db, "longtext")
}

// MediumText holds link lists, up to 16 MiB on MySQL.
type MediumText string

func (MediumText) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	return textType(db, "mediumtext")
}

func textType(db *gorm.DB, mysqlType string) string {
	if db != nil && db.Dialector != nil && db.Dialector.Name() == "mysql" {
		return mysqlType
	}
	return "text"
}
