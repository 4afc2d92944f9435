package domain

import "testing"

func TestResolvePermissionsPerRole(t *testing.T) {
	cases := []struct {
		role string
		want []Permission
	}{
		{"Author", []Permission{PermCompleteFeedback, PermGetPublication, PermGetFeedback, PermGiveOkToPublication}},
		{"Curator", []Permission{PermGetFeedback, PermPatchFeedback, PermPostFeedback, PermDeleteFeedback, PermGetPublication}},
		{"Admin", []Permission{PermGetPublications, PermGetPublication, PermPublishPublication, PermExportPublication, PermPostPublication, PermDeletePublication, PermAddUser}},
	}
	for _, tc := range cases {
		got := ResolvePermissions([]string{tc.role})
		if len(got) != len(tc.want) {
			t.Fatalf("%s: got %d permissions, want %d", tc.role, len(got), len(tc.want))
		}
		for _, p := range tc.want {
			if !got.Has(p) {
				t.Fatalf("%s: missing permission %q", tc.role, p)
			}
		}
	}
}

func TestResolvePermissionsUnionDeduplicates(t *testing.T) {
	got := ResolvePermissions([]string{"Author", "Curator"})
	// get:publication and get:feedback overlap between the two roles.
	if len(got) != 7 {
		t.Fatalf("union size = %d, want 7", len(got))
	}
	if !got.Has(PermGiveOkToPublication) || !got.Has(PermPostFeedback) {
		t.Fatalf("union missing role-specific permissions: %v", got)
	}
}

func TestResolvePermissionsIgnoresUnknownRoles(t *testing.T) {
	if got := ResolvePermissions([]string{"Janitor", "author", "ADMIN"}); len(got) != 0 {
		t.Fatalf("unknown/miscased roles granted permissions: %v", got)
	}
	got := ResolvePermissions([]string{"Janitor", "Author"})
	if !got.Has(PermCompleteFeedback) || len(got) != 4 {
		t.Fatalf("unknown role altered known role grants: %v", got)
	}
}

func TestResolvePermissionsEmpty(t *testing.T) {
	if got := ResolvePermissions(nil); len(got) != 0 {
		t.Fatalf("empty role set resolved to %v, want empty", got)
	}
}

func TestKnownRole(t *testing.T) {
	for _, name := range []string{"Author", "Curator", "Admin"} {
		if !KnownRole(name) {
			t.Fatalf("expected %q to be known", name)
		}
	}
	for _, name := range []string{"", "author", "Root"} {
		if KnownRole(name) {
			t.Fatalf("expected %q to be unknown", name)
		}
	}
}
