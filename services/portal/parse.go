package portal

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// loginTokens are the three anti-forgery values the portal hides in its
// login form.
type loginTokens struct {
	ViewStateC      string
	EventValidation string
	CSRFToken       string
}

// extractLoginTokens pulls the anti-forgery tokens out of the login page.
func extractLoginTokens(body string) (loginTokens, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return loginTokens{}, fmt.Errorf("parsing login page: %w", err)
	}

	tokens := loginTokens{}
	fields := map[string]*string{
		"__VIEWSTATEC":      &tokens.ViewStateC,
		"__EVENTVALIDATION": &tokens.EventValidation,
		"CSRFToken":         &tokens.CSRFToken,
	}
	for id, dest := range fields {
		value, ok := doc.Find("#" + id).Attr("value")
		if !ok {
			return loginTokens{}, fmt.Errorf("login token %s not found", id)
		}
		*dest = value
	}
	return tokens, nil
}
