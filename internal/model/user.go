package model

// User 系统用户账号
type User struct {
	BaseModel
	// 基础信息
	Username string `gorm:"size:255;uniqueIndex;not null"`
	Email    string `gorm:"size:255;uniqueIndex;not null"` // 入库前域名段已转小写
	Password string `gorm:"size:255;not null"`             // 哈希密码，永不外发

	// 账号状态标志
	IsActive    bool `gorm:"default:true"`
	IsStaff     bool `gorm:"default:false"`
	IsSuperuser bool `gorm:"default:false"`

	// ==============================
	// 关联关系
	// ==============================

	Products []Product `gorm:"foreignKey:UserID"`
	Tags     []Tag     `gorm:"foreignKey:UserID"`
}

func (User) TableName() string {
	return "users"
}
