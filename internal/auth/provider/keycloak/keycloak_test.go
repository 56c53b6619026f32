package keycloak

import "testing"

func TestRealmPath(t *testing.T) {
	tests := []struct {
		issuer string
		want   string
	}{
		{"http://keycloak:8080/realms/federation", "/realms/federation"},
		{"http://keycloak:8080/realms/federation/", "/realms/federation"},
		{"http://keycloak:8080/", ""},
	}
	for _, tt := range tests {
		if got := realmPath(tt.issuer); got != tt.want {
			t.Errorf("realmPath(%q) = %q, want %q", tt.issuer, got, tt.want)
		}
	}
}
