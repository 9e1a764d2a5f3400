package claims

import (
	"time"

	jwt "github.com/dgrijalva/jwt-go"

	"purrform/pkg/role"
)

// Claims is the JWT body of a session token. Expires is informational;
// the registered exp claim is what verification enforces.
type Claims struct {
	Role    role.Role `json:"role"`
	Expires time.Time `json:"expiresAt"`
	jwt.StandardClaims
}
