package speech

import "regexp"

var printableASCII = regexp.MustCompile(`^[ -~]+$`)

// ValidateCredential checks an API key locally before it is sent anywhere.
func ValidateCredential(credential string) error {
	if credential == "" {
		return ErrMissingCredential
	}
	if !printableASCII.MatchString(credential) {
		return ErrInvalidCredential
	}
	return nil
}
