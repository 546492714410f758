package model

// swagger:model Category
type Category struct {
	UUIDBase
	Name        string `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	IconURL     string `gorm:"size:255" json:"iconUrl"`
	IsActive    bool   `gorm:"default:true" json:"isActive"`
}

func (Category) TableName() string {
	return "categories"
}
