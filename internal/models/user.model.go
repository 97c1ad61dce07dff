package models

type User struct {
	BaseUUIDModel
	FirstName string `gorm:"not null"              json:"firstName"`
	LastName  string `gorm:"not null"              json:"lastName"`
	Email     string `gorm:"uniqueIndex;not null"  json:"email"`
	Phone     string `                             json:"phone"`
	IsActive  bool   `gorm:"default:true"          json:"isActive"`
}

type UserProfile struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

func (u *User) ToProfile() UserProfile {
	return UserProfile{
		ID:        u.ID.String(),
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
	}
}
