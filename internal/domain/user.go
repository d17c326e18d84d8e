package domain

// UserInfo describes the signed-in account on the remote catalog
type UserInfo struct {
	UserID    int
	Name      string
	IsPremium bool
}
