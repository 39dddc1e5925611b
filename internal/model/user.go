package model

// User roles.  New accounts always start as RoleUser; no handler changes roles.
const (
    RoleAdmin = "admin"
    RoleUser  = "user"
)

// User represents an application user record as stored in the
// `users` table.  Username and Email are both unique.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Username     – unique login name, matched exactly as the store collates it.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password, never serialized.
//  Role         – admin or user.
type User struct {
    ID           uint64 `db:"id" json:"id"`
    Username     string `db:"username" json:"username"`
    Email        string `db:"email" json:"email"`
    PasswordHash string `db:"password_hash" json:"-"`
    Role         string `db:"role" json:"role"`
}
