package workspace

import "testing"

func TestParseRepoName(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"ssh", "git@github.com:owner/converse.git", "converse"},
		{"https", "https://github.com/owner/converse.git", "converse"},
		{"https no suffix", "https://github.com/owner/converse", "converse"},
		{"empty", "", ""},
		{"garbage", "not-a-url", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseRepoName(tt.url); got != tt.want {
				t.Errorf("parseRepoName(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestCurrentIdentityExplicit(t *testing.T) {
	d := Detector{Explicit: "side-project"}
	if got := d.CurrentIdentity(); got != "side-project" {
		t.Errorf("CurrentIdentity() = %q, want side-project", got)
	}
}

func TestCurrentIdentityDefault(t *testing.T) {
	d := Detector{}
	if got := d.CurrentIdentity(); got != DefaultIdentity {
		t.Errorf("CurrentIdentity() = %q, want %q", got, DefaultIdentity)
	}
}
