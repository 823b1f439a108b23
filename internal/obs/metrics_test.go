package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                                "/",
		"/metrics":                        "/metrics",
		"/v1/accounts/42":                 "/v1/accounts/:id",
		"/v1/accounts/42/status":          "/v1/accounts/:id/status",
		"/v1/accounts/me":                 "/v1/accounts/me",
		"/v1/locations/17/warnings":       "/v1/locations/:id/warnings",
		"/v1/locations/17/citations":      "/v1/locations/:id/citations",
		"/v1/incidents/01J9FV4W3B":        "/v1/incidents/:id",
		"/v1/incidents/stream":            "/v1/incidents/stream",
		"/v1/parties":                     "/v1/parties",
		"/v1/parties?filter=city:eq:Ames": "/v1/parties",
		"/v1/auth/login":                  "/v1/auth/login",
		"/v1/students/7?page=2":           "/v1/students/:id",
		"/healthz":                        "/healthz",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
