package crawler

import (
	"net/url"
	"testing"
)

// TestNormalize tests URL canonicalization.
func TestNormalize(t *testing.T) {
	t.Parallel()

	base, err := url.Parse("http://example.com/dir/page.html")
	if err != nil {
		t.Fatalf("failed to parse base: %v", err)
	}

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"relative path", "other.html", "http://example.com/dir/other.html"},
		{"root relative", "/about", "http://example.com/about"},
		{"protocol relative", "//example.com/x", "http://example.com/x"},
		{"strips fragment", "/page#section", "http://example.com/page"},
		{"lowercases host", "HTTP://EXAMPLE.COM/Path", "http://example.com/Path"},
		{"removes default http port", "http://example.com:80/a", "http://example.com/a"},
		{"removes default https port", "https://example.com:443/a", "https://example.com/a"},
		{"keeps custom port", "http://example.com:8080/a", "http://example.com:8080/a"},
		{"empty path becomes root", "http://example.com", "http://example.com/"},
		{"keeps query", "/search?q=1", "http://example.com/search?q=1"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Normalize(tt.raw, base)
			if err != nil {
				t.Fatalf("Normalize(%q) returned error: %v", tt.raw, err)
			}
			if got.String() != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.raw, got.String(), tt.want)
			}
		})
	}

	t.Run("rejects unsupported schemes", func(t *testing.T) {
		t.Parallel()

		for _, raw := range []string{"ftp://example.com/file", "mailto:a@b.c"} {
			if _, err := Normalize(raw, nil); err == nil {
				t.Errorf("Normalize(%q) should have been rejected", raw)
			}
		}
	})

	t.Run("rejects malformed URLs", func(t *testing.T) {
		t.Parallel()

		if _, err := Normalize("http://exa mple.com/%zz", base); err == nil {
			t.Error("malformed URL should have been rejected")
		}
	})
}

// TestClassify tests resource classification.
func TestClassify(t *testing.T) {
	t.Parallel()

	const seedHost = "target.example"

	tests := []struct {
		name    string
		rawURL  string
		linkCtx LinkContext
		want    Kind
	}{
		{"other host is external", "http://other.example/page", ContextNavigation, KindExternal},
		{"image is unsupported", "http://target.example/logo.png", ContextNavigation, KindUnsupported},
		{"stylesheet is unsupported", "http://target.example/main.css", ContextNavigation, KindUnsupported},
		{"font is unsupported", "http://target.example/font.woff2", ContextNavigation, KindUnsupported},
		{"js file is script", "http://target.example/app.js", ContextScript, KindScript},
		{"api segment is endpoint", "http://target.example/api/users", ContextNavigation, KindBackendEndpoint},
		{"rest segment is endpoint", "http://target.example/rest/v1/items", ContextNavigation, KindBackendEndpoint},
		{"json extension is endpoint", "http://target.example/data.json", ContextNavigation, KindBackendEndpoint},
		{"cgi is endpoint", "http://target.example/search.cgi", ContextNavigation, KindBackendEndpoint},
		{"api query key is endpoint", "http://target.example/index?action=save", ContextNavigation, KindBackendEndpoint},
		{"php via navigation is page", "http://target.example/view.php", ContextNavigation, KindHTMLPage},
		{"php via form is endpoint", "http://target.example/view.php", ContextForm, KindBackendEndpoint},
		{"php via script ref is endpoint", "http://target.example/view.php", ContextScript, KindBackendEndpoint},
		{"jsp via form is endpoint", "http://target.example/save.jsp", ContextForm, KindBackendEndpoint},
		{"form to extensionless path is endpoint", "http://target.example/save", ContextForm, KindBackendEndpoint},
		{"html extension is page", "http://target.example/about.html", ContextNavigation, KindHTMLPage},
		{"extensionless is page", "http://target.example/about", ContextNavigation, KindHTMLPage},
		{"root is page", "http://target.example/", ContextNavigation, KindHTMLPage},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			u, err := url.Parse(tt.rawURL)
			if err != nil {
				t.Fatalf("failed to parse %q: %v", tt.rawURL, err)
			}

			got := Classify(u, tt.linkCtx, seedHost)
			if got != tt.want {
				t.Errorf("Classify(%q, %v) = %v, want %v", tt.rawURL, tt.linkCtx, got, tt.want)
			}

			// Classification is pure: the same inputs must always yield
			// the same kind.
			if again := Classify(u, tt.linkCtx, seedHost); again != got {
				t.Errorf("Classify is not idempotent: %v then %v", got, again)
			}
		})
	}
}

// TestRecordKey tests the query-stripped report form of a URL.
func TestRecordKey(t *testing.T) {
	t.Parallel()

	u, err := url.Parse("http://target.example/search?q=1&page=2")
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}

	if got, want := RecordKey(u), "http://target.example/search"; got != want {
		t.Errorf("RecordKey = %q, want %q", got, want)
	}
}
