package client

import "time"

// User mirrors the server user model.
type User struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	AvatarURL       *string   `json:"avatarURL,omitempty"`
	IsEmailVerified bool      `json:"isEmailVerified"`
	Members         []Member  `json:"members,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

type Member struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userID"`
	ChatGroupID string     `json:"chatGroupID"`
	Role        string     `json:"role"`
	User        *User      `json:"user,omitempty"`
	ChatGroup   *ChatGroup `json:"chatGroup,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type ChatGroup struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	ImageURL    string    `json:"imageURL"`
	IsPublic    bool      `json:"isPublic"`
	InviteCode  string    `json:"inviteCode,omitempty"`
	Members     []Member  `json:"members,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// MemberOf returns userID's membership, or nil.
func (g ChatGroup) MemberOf(userID string) *Member {
	for i := range g.Members {
		if g.Members[i].UserID == userID {
			return &g.Members[i]
		}
	}
	return nil
}

// Page carries the pagination fields shared by every list response.
type Page struct {
	Page          int   `json:"page"`
	Limit         int   `json:"limit"`
	DocumentCount int64 `json:"documentCount"`
	IsNext        bool  `json:"isNext"`
	IsPrevious    bool  `json:"isPrevious"`
}

type ChatGroupPage struct {
	Page
	ChatGroups []ChatGroup `json:"chatGroups"`
}

type UserPage struct {
	Page
	Users []User `json:"users"`
}

type ChatGroupData struct {
	ChatGroup ChatGroup `json:"chatGroup"`
}

type UserData struct {
	User User `json:"user"`
}

type MemberData struct {
	Member Member `json:"member"`
}

// Session is returned by sign-in.
type Session struct {
	User         User   `json:"user"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}
