package model

// Product 商品
type Product struct {
	BaseModel
	// 归属用户，创建后不可变更
	UserID int64 `gorm:"index;not null"`
	User   *User `gorm:"foreignKey:UserID"`

	// --- 商品基本信息 ---
	Title       string `gorm:"size:255;not null"`
	Description string `gorm:"type:text"`
	// 价格以 decimal 字符串收发，数据库用 numeric 精确存储
	Price string `gorm:"type:numeric(10,2);not null"`

	// 图片存储路径 (本地路径或对象存储 URL)
	ImagePath string `gorm:"size:512"`

	// --- 关联关系 ---
	// 只允许挂本用户自己的标签，由 service 层的标签解析保证
	Tags []Tag `gorm:"many2many:product_tags;"`
}

func (Product) TableName() string {
	return "products"
}
