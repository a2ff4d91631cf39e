package registry

import (
	"net/url"
	"strconv"
	"strings"
)

// User is an employee known to the access-control backend.
type User struct {
	ID            int64    `json:"id"`
	Name          string   `json:"name"`
	EmpNumber     string   `json:"emp_number"`
	IsActive      bool     `json:"is_active"`
	FaceDirectory string   `json:"face_directory"`
	RFID          *RFIDRef `json:"rfid"`
}

// RFIDRef is the card linked to a user, if any.
type RFIDRef struct {
	ID     int64  `json:"id"`
	Number string `json:"number"`
}

// RFIDCard is a physical credential.
type RFIDCard struct {
	ID       int64  `json:"id"`
	Number   string `json:"number"`
	IsActive bool   `json:"is_active"`
}

// Room is a door controller record.
type Room struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Secret    string `json:"secret"`
	IPAddress string `json:"ip_address"`
}

// Login is a console operator account.
type Login struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

// AccessUser is a user granted access to a specific room. The ID identifies
// the grant, not the user.
type AccessUser struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"user_id"`
	Name      string `json:"name"`
	EmpNumber string `json:"emp_number"`
}

// UserForm carries user create/update input.
type UserForm struct {
	Name      string `json:"name" validate:"required"`
	EmpNumber string `json:"emp_number" validate:"required"`
	IsActive  bool   `json:"is_active"`
	RFIDID    *int64 `json:"idRfidUser,omitempty"`
}

// RoomForm carries room create/update input. The secret is the shared key the
// door controller authenticates with.
type RoomForm struct {
	Name      string `json:"name" validate:"required"`
	Secret    string `json:"secret" validate:"required,min=8"`
	IPAddress string `json:"ip_address" validate:"required,ip"`
}

// RFIDForm carries card create/update input.
type RFIDForm struct {
	Number   string `json:"number" validate:"required"`
	IsActive bool   `json:"is_active"`
}

// LoginForm carries operator account input. Password is required on create
// and optional on update.
type LoginForm struct {
	Username string `json:"username" validate:"required,min=3"`
	Password string `json:"password,omitempty" validate:"omitempty,min=8"`
	Role     string `json:"role" validate:"required,oneof=ADMIN AUDITOR"`
	IsActive bool   `json:"is_active"`
}

// ListQuery is the shared keyword-plus-page listing input.
type ListQuery struct {
	PageIndex int
	PageSize  int
	Keyword   string
}

// RawQuery renders the query string in the fixed limit, offset, keyword
// order every listing endpoint expects.
func (q ListQuery) RawQuery() string {
	size := q.PageSize
	if size <= 0 {
		size = 10
	}
	var b strings.Builder
	b.WriteString("limit=")
	b.WriteString(strconv.Itoa(size))
	b.WriteString("&offset=")
	b.WriteString(strconv.Itoa(q.PageIndex * size))
	if q.Keyword != "" {
		b.WriteString("&keyword=")
		b.WriteString(url.QueryEscape(q.Keyword))
	}
	return b.String()
}
