package model

import "time"

type NoticeType string

const (
	NoticeSuccess NoticeType = "success"
	NoticeFail    NoticeType = "fail"
	NoticeError   NoticeType = "error"
)

const (
	FieldRead   = "read"
	FieldView   = "view"
	FieldReadAt = "read_at"
)

// Notice is the {type, message} pair returned with every mutating response.
type Notice struct {
	Type    NoticeType `json:"type"`
	Message string     `json:"message"`
}

func Success(msg string) *Notice { return &Notice{Type: NoticeSuccess, Message: msg} }
func Fail(msg string) *Notice    { return &Notice{Type: NoticeFail, Message: msg} }

type NotificationSet struct {
	ID            string         `json:"id"`
	UserID        string         `json:"user"`
	Notifications []Notification `json:"notifications"`
}

type Notification struct {
	ID        string     `gorm:"primaryKey" json:"id"`
	UserID    string     `gorm:"not null;index" json:"-"`
	Type      NoticeType `gorm:"not null" json:"type"`
	Message   string     `gorm:"not null" json:"message"`
	Read      bool       `gorm:"default:false" json:"read"`
	View      bool       `gorm:"default:false" json:"view"`
	CreatedAt time.Time  `gorm:"not null" json:"createdAt"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
}
