package models

import (
	"strings"
	"unicode/utf8"
)

// MaxNicknameLength is the longest nickname, in characters, that is stored for a user.
const MaxNicknameLength = 50

// Role is a user's position in the group hierarchy.
type Role string

const (
	RoleUser   Role = "user"
	RoleJunior Role = "junior"
	RoleAdmin  Role = "admin"
	RoleOwner  Role = "owner"
)

// Rank maps a role onto the total order User < JuniorAdmin < Admin < Owner.
// Unrecognized values rank lowest.
func (r Role) Rank() int {
	switch r {
	case RoleJunior:
		return 1
	case RoleAdmin:
		return 2
	case RoleOwner:
		return 3
	default:
		return 0
	}
}

// Title is the human readable name shown in chat replies.
func (r Role) Title() string {
	switch r {
	case RoleJunior:
		return "Мл. Админ"
	case RoleAdmin:
		return "Админ"
	case RoleOwner:
		return "Владелец"
	default:
		return "Участник"
	}
}

// ParseRole reads a stored role value. Anything unknown becomes RoleUser,
// and so does "owner": that role is derived from configuration, never stored.
func ParseRole(s string) Role {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleJunior, RoleAdmin:
		return r
	default:
		return RoleUser
	}
}

// User is the directory record kept for every member the bot has seen.
type User struct {
	ID       int64  `json:"user_id"`
	Role     Role   `json:"role"`
	Nickname string `json:"nickname,omitempty"`
	Warnings int    `json:"warnings"`
}

// NewUser returns the default record for a user that was never stored.
func NewUser(id int64) *User {
	return &User{ID: id, Role: RoleUser}
}

// HasNickname reports whether the user passed the nickname gate.
func (u *User) HasNickname() bool {
	return u.Nickname != ""
}

// TruncateNickname trims whitespace and cuts the nickname to MaxNicknameLength characters.
func TruncateNickname(nick string) string {
	return truncateRunes(strings.TrimSpace(nick), MaxNicknameLength)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
