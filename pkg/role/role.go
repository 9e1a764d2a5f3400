package role

// Role is the single claim a dashboard session carries.
type Role string

const (
	Admin      Role = "admin"
	Bookkeeper Role = "bookkeeper"
)

const (
	HomePath               = "/"
	LoginPath              = "/login"
	BreederCertificatePath = "/breeder-certificate"
	DashboardPath          = "/dashboard"
	TraderCreditPath       = "/dashboard/trader-credit"
)

// Parse returns the role named by s. Anything but an exact match is rejected.
func Parse(s string) (Role, bool) {
	switch Role(s) {
	case Admin, Bookkeeper:
		return Role(s), true
	}
	return "", false
}

func (r Role) Valid() bool {
	_, ok := Parse(string(r))
	return ok
}

// Landing is the page a role is sent to when it lands somewhere it should not be.
func (r Role) Landing() string {
	switch r {
	case Admin:
		return DashboardPath
	case Bookkeeper:
		return TraderCreditPath
	}
	return LoginPath
}

// Permits reports whether the role may open the protected path.
func (r Role) Permits(path string) bool {
	switch r {
	case Admin:
		return true
	case Bookkeeper:
		return path == TraderCreditPath
	}
	return false
}
