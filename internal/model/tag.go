package model

// Tag 商品标签，归属于单个用户
// (user_id, name) 唯一索引是 get-or-create 并发安全的基础
type Tag struct {
	BaseModel
	UserID int64  `gorm:"uniqueIndex:idx_tag_owner_name;not null"`
	User   *User  `gorm:"foreignKey:UserID"`
	Name   string `gorm:"size:255;uniqueIndex:idx_tag_owner_name;not null"`
}

func (Tag) TableName() string {
	return "tags"
}
