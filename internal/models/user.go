package models

type User struct {
	BaseModel
	Name            string   `json:"name" gorm:"type:varchar(255);not null"`
	Email           string   `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash    string   `json:"-" gorm:"type:text;not null"`
	AvatarURL       *string  `json:"avatarURL,omitempty" gorm:"type:text"`
	IsEmailVerified bool     `json:"isEmailVerified" gorm:"not null;default:false"`
	Members         []Member `json:"members,omitempty" gorm:"foreignKey:UserID"`
}
