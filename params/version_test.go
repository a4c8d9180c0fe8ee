package params

import "testing"

func TestVersionWithCommit(t *testing.T) {
	tests := []struct {
		commit, date, want string
	}{
		{"", "", VersionWithMeta},
		{"abc", "20260101", VersionWithMeta},
		{"0123456789abcdef", "20260101", VersionWithMeta + "-01234567"},
	}
	for _, tt := range tests {
		if got := VersionWithCommit(tt.commit, tt.date); got != tt.want {
			t.Errorf("VersionWithCommit(%q, %q) = %q, want %q", tt.commit, tt.date, got, tt.want)
		}
	}
}
