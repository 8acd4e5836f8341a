package circulation

import "libraryms/pkg/models"

// Session identifies the acting user for one call.
type Session struct {
	User models.User
}

func NewSession(user models.User) Session {
	return Session{User: user}
}

func (s Session) UserID() uint {
	return s.User.ID
}

func (s Session) IsAdmin() bool {
	return s.User.IsAdmin()
}

// canActFor reports whether the session may operate on a record owned by userID.
func (s Session) canActFor(userID uint) bool {
	return s.IsAdmin() || s.User.ID == userID
}
