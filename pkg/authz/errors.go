package authz

import "net/http"

// AuthError describes a rejected credential or permission check with a
// machine-readable code, a human description, and the HTTP status the
// boundary should answer with.
type AuthError struct {
	Code        string
	Description string
	Status      int
}

func (e *AuthError) Error() string {
	return e.Description
}

func errMissingHeader() *AuthError {
	return &AuthError{
		Code:        "no_authorization_header",
		Description: "authorization header is missing",
		Status:      http.StatusUnauthorized,
	}
}

func errMalformedHeader() *AuthError {
	return &AuthError{
		Code:        "invalid_header",
		Description: "authorization header malformed: no bearer",
		Status:      http.StatusBadRequest,
	}
}

func errNotDecodable(cause error) *AuthError {
	return &AuthError{
		Code:        "token_not_decodable",
		Description: "token is not decodable: " + cause.Error(),
		Status:      http.StatusUnauthorized,
	}
}

func errNoExpiration() *AuthError {
	return &AuthError{
		Code:        "no_expiration_date",
		Description: "no expiration date in token",
		Status:      http.StatusBadRequest,
	}
}

func errTokenExpired() *AuthError {
	return &AuthError{
		Code:        "token_expired",
		Description: "token is expired",
		Status:      http.StatusUnauthorized,
	}
}

func errNoRoles() *AuthError {
	return &AuthError{
		Code:        "no_roles",
		Description: "no roles in token",
		Status:      http.StatusBadRequest,
	}
}

func errRolesNotAList() *AuthError {
	return &AuthError{
		Code:        "roles_not_a_list",
		Description: "roles are not a list",
		Status:      http.StatusBadRequest,
	}
}

func errPermissionNotGranted(permission string) *AuthError {
	return &AuthError{
		Code:        "permission_not_granted",
		Description: "required permission " + permission + " is not granted",
		Status:      http.StatusForbidden,
	}
}
