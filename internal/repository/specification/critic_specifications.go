package specification

import "gorm.io/gorm"

// ActiveCritics keeps enabled critic definitions only
type ActiveCritics struct{}

func (s ActiveCritics) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("is_active = ?", true)
}

// ByTier filters critic definitions by analysis tier
type ByTier struct {
	Tier string
}

func (s ByTier) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("tier = ?", s.Tier)
}
