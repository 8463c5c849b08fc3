package validation

import (
	"net/url"

	validation "github.com/jellydator/validation"
)

// AbsoluteHTTPURI validates an absolute URI with an http or https scheme and a host,
// as required for OAuth redirect URIs.
var AbsoluteHTTPURI = validation.By(func(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_uri_type", "must be a string")
	}
	if s == "" {
		return nil // Let Required handle empty strings
	}

	u, err := url.Parse(s)
	if err != nil || !u.IsAbs() {
		return validation.NewError("validation_uri_absolute", "must be an absolute URI")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return validation.NewError("validation_uri_scheme", "must use the http or https scheme")
	}
	if u.Host == "" {
		return validation.NewError("validation_uri_host", "must include a host")
	}
	if u.Fragment != "" {
		return validation.NewError("validation_uri_fragment", "must not contain a fragment")
	}
	return nil
})
