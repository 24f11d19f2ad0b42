package domain

// UserType distinguishes the three parties that drive order transitions.
type UserType string

const (
	UserTypeInternal  UserType = "internal"
	UserTypeAccount   UserType = "account"
	UserTypePublisher UserType = "publisher"
)

// IsValid reports whether the user type is one of the known roles.
func (t UserType) IsValid() bool {
	switch t {
	case UserTypeInternal, UserTypeAccount, UserTypePublisher:
		return true
	}
	return false
}

// Actor is the authenticated identity attached to a request. Services use it
// for ownership and role checks; it is populated by the auth middleware.
type Actor struct {
	UserID    UserID
	UserType  UserType
	AccountID AccountID
	Email     string
}

// IsInternal reports whether the actor is internal staff.
func (a Actor) IsInternal() bool { return a.UserType == UserTypeInternal }

// OwnsAccount reports whether the actor is the account user for accountID.
func (a Actor) OwnsAccount(accountID AccountID) bool {
	return a.UserType == UserTypeAccount && a.AccountID == accountID && !a.AccountID.IsNil()
}
