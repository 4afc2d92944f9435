package authz

import (
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"pubreview/pkg/domain"
)

// Guard validates bearer credentials and role-derived permissions.
type Guard struct {
	codec *Codec
	now   func() time.Time
}

// NewGuard builds a guard over the given codec.
func NewGuard(codec *Codec) *Guard {
	return &Guard{codec: codec, now: time.Now}
}

// BearerToken extracts the credential from an Authorization header value.
// The scheme keyword is matched case-insensitively.
func BearerToken(header string) (string, *AuthError) {
	if header == "" {
		return "", errMissingHeader()
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", errMalformedHeader()
	}
	return parts[1], nil
}

// Authorize runs the full check chain on a raw Authorization header value:
// bearer extraction, signature verification, expiry, roles shape, and
// membership of the required permission in the role-derived set. On success
// the decoded claims are returned for use as request context.
func (g *Guard) Authorize(header string, required domain.Permission) (Claims, *AuthError) {
	raw, authErr := BearerToken(header)
	if authErr != nil {
		return Claims{}, authErr
	}
	mapClaims, err := g.codec.Decode(raw)
	if err != nil {
		return Claims{}, errNotDecodable(err)
	}

	exp, ok := numericClaim(mapClaims, "exp")
	if !ok {
		return Claims{}, errNoExpiration()
	}
	if exp < float64(g.now().UTC().Unix()) {
		return Claims{}, errTokenExpired()
	}

	rawRoles, ok := mapClaims["roles"]
	if !ok || rawRoles == nil {
		return Claims{}, errNoRoles()
	}
	list, ok := rawRoles.([]any)
	if !ok {
		return Claims{}, errRolesNotAList()
	}
	roles := make([]string, 0, len(list))
	for _, item := range list {
		if name, ok := item.(string); ok {
			roles = append(roles, name)
		}
	}

	if !domain.ResolvePermissions(roles).Has(required) {
		return Claims{}, errPermissionNotGranted(string(required))
	}

	return Claims{
		ID:    stringClaim(mapClaims, "id"),
		Name:  stringClaim(mapClaims, "name"),
		Email: stringClaim(mapClaims, "email"),
		Roles: roles,
	}, nil
}

func numericClaim(claims jwt.MapClaims, key string) (float64, bool) {
	raw, ok := claims[key]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case jwt.NumericDate:
		return float64(v.Unix()), true
	default:
		return 0, false
	}
}

func stringClaim(claims jwt.MapClaims, key string) string {
	v, _ := claims[key].(string)
	return v
}
