package authz

import (
	"net/http"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"pubreview/pkg/domain"
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	codec, err := NewCodec("guard-test-secret", time.Hour)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	return codec
}

func signRaw(t *testing.T, codec *Codec, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(codec.secret)
	if err != nil {
		t.Fatalf("sign raw claims: %v", err)
	}
	return raw
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header   string
		wantCode string
	}{
		{"", "no_authorization_header"},
		{"token-without-scheme", "invalid_header"},
		{"Basic abc123", "invalid_header"},
		{"Bearer a b", "invalid_header"},
	}
	for _, tc := range cases {
		_, authErr := BearerToken(tc.header)
		if authErr == nil || authErr.Code != tc.wantCode {
			t.Fatalf("header %q: got %+v, want code %q", tc.header, authErr, tc.wantCode)
		}
	}
	for _, header := range []string{"Bearer abc", "bearer abc", "BEARER abc"} {
		token, authErr := BearerToken(header)
		if authErr != nil || token != "abc" {
			t.Fatalf("header %q: token %q, err %+v", header, token, authErr)
		}
	}
}

func TestAuthorizeHappyPath(t *testing.T) {
	codec := newTestCodec(t)
	guard := NewGuard(codec)
	raw, err := codec.Encode(Claims{ID: "id-7", Name: "Ada", Email: "ada@example.com", Roles: []string{"Curator"}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	claims, authErr := guard.Authorize("Bearer "+raw, domain.PermPostFeedback)
	if authErr != nil {
		t.Fatalf("authorize: %+v", authErr)
	}
	if claims.ID != "id-7" || claims.Name != "Ada" || claims.Email != "ada@example.com" {
		t.Fatalf("claims not returned to caller: %+v", claims)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != "Curator" {
		t.Fatalf("roles not returned to caller: %+v", claims.Roles)
	}
}

func TestAuthorizeIsIdempotentUntilExpiry(t *testing.T) {
	codec := newTestCodec(t)
	guard := NewGuard(codec)
	raw, err := codec.Encode(Claims{ID: "id-7", Roles: []string{"Admin"}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, authErr := guard.Authorize("Bearer "+raw, domain.PermAddUser); authErr != nil {
			t.Fatalf("attempt %d: %+v", i, authErr)
		}
	}

	// Move the guard clock past the expiry: the same token must fail with
	// token_expired on every subsequent attempt.
	guard.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	for i := 0; i < 3; i++ {
		_, authErr := guard.Authorize("Bearer "+raw, domain.PermAddUser)
		if authErr == nil || authErr.Code != "token_expired" {
			t.Fatalf("attempt %d after expiry: got %+v, want token_expired", i, authErr)
		}
		if authErr.Status != http.StatusUnauthorized {
			t.Fatalf("expired token status = %d, want 401", authErr.Status)
		}
	}
}

func TestAuthorizeRejectsForeignSignature(t *testing.T) {
	codec := newTestCodec(t)
	foreign, _ := NewCodec("some-other-secret", time.Hour)
	raw, err := foreign.Encode(Claims{ID: "id-7", Roles: []string{"Admin"}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	_, authErr := NewGuard(codec).Authorize("Bearer "+raw, domain.PermAddUser)
	if authErr == nil || authErr.Code != "token_not_decodable" {
		t.Fatalf("got %+v, want token_not_decodable", authErr)
	}
	if authErr.Status != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", authErr.Status)
	}
}

func TestAuthorizeRequiresExpiryClaim(t *testing.T) {
	codec := newTestCodec(t)
	raw := signRaw(t, codec, jwt.MapClaims{"id": "id-7", "roles": []string{"Admin"}})
	_, authErr := NewGuard(codec).Authorize("Bearer "+raw, domain.PermAddUser)
	if authErr == nil || authErr.Code != "no_expiration_date" {
		t.Fatalf("got %+v, want no_expiration_date", authErr)
	}
	if authErr.Status != http.StatusBadRequest {
		t.Fatalf("missing expiry status = %d, want 400", authErr.Status)
	}
}

func TestAuthorizeRolesClaimShape(t *testing.T) {
	codec := newTestCodec(t)
	guard := NewGuard(codec)
	exp := jwt.NewNumericDate(time.Now().Add(time.Hour))

	raw := signRaw(t, codec, jwt.MapClaims{"id": "id-7", "exp": exp})
	if _, authErr := guard.Authorize("Bearer "+raw, domain.PermAddUser); authErr == nil || authErr.Code != "no_roles" {
		t.Fatalf("got %+v, want no_roles", authErr)
	}

	raw = signRaw(t, codec, jwt.MapClaims{"id": "id-7", "exp": exp, "roles": "Admin"})
	if _, authErr := guard.Authorize("Bearer "+raw, domain.PermAddUser); authErr == nil || authErr.Code != "roles_not_a_list" {
		t.Fatalf("got %+v, want roles_not_a_list", authErr)
	}
}

func TestAuthorizePermissionMembership(t *testing.T) {
	codec := newTestCodec(t)
	guard := NewGuard(codec)
	raw, err := codec.Encode(Claims{ID: "id-7", Roles: []string{"Author"}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	_, authErr := guard.Authorize("Bearer "+raw, domain.PermDeletePublication)
	if authErr == nil || authErr.Code != "permission_not_granted" {
		t.Fatalf("got %+v, want permission_not_granted", authErr)
	}
	if authErr.Status != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", authErr.Status)
	}
	want := "required permission delete:publication is not granted"
	if authErr.Description != want {
		t.Fatalf("description = %q, want %q", authErr.Description, want)
	}

	// Unknown roles in the token contribute nothing but do not fail checks.
	raw, _ = codec.Encode(Claims{ID: "id-7", Roles: []string{"Janitor", "Author"}})
	if _, authErr := guard.Authorize("Bearer "+raw, domain.PermGetFeedback); authErr != nil {
		t.Fatalf("unknown role alongside known role: %+v", authErr)
	}
}
