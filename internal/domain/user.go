package domain

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

type User struct {
	ID    string `db:"id"`
	Email string `db:"email"`
	Name  string `db:"name"`
	Hash  string `db:"password_hash"`
	Role  string `db:"role"`
}

func (u *User) IsAdmin() bool { return u != nil && u.Role == RoleAdmin }

// Principal is the authenticated caller of a lifecycle operation.
type Principal struct {
	ID    string
	Admin bool
}

func (u *User) Principal() Principal {
	if u == nil {
		return Principal{}
	}
	return Principal{ID: u.ID, Admin: u.IsAdmin()}
}

func (u *User) GetID() string {
	if u == nil {
		return ""
	}
	return u.ID
}
