package models

type ChatGroup struct {
	BaseModel
	Name        string   `json:"name" gorm:"type:varchar(50);not null;index"`
	Description *string  `json:"description,omitempty" gorm:"type:varchar(255)"`
	ImageURL    string   `json:"imageURL" gorm:"type:text;not null"`
	IsPublic    bool     `json:"isPublic" gorm:"not null;default:false;index"`
	InviteCode  string   `json:"inviteCode,omitempty" gorm:"type:varchar(36);uniqueIndex;not null"`
	Members     []Member `json:"members,omitempty" gorm:"foreignKey:ChatGroupID"`
}

func (ChatGroup) TableName() string {
	return "chat_groups"
}
