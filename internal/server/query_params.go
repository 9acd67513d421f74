package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// consentParams accepts both the form-encoded and the JSON shape of a consent submission.
type consentParams struct {
	Action      string      `form:"action" json:"action"`
	Name        string      `form:"name" json:"name"`
	Email       string      `form:"email" json:"email"`
	Phone       looseString `form:"phone" json:"phone"`
	Consent     looseString `form:"consent" json:"consent"`
	ConsentType string      `form:"consentType" json:"consentType"`
}

// bindConsentParams reads form bodies, JSON bodies and text/plain bodies
// carrying JSON; query parameters fill fields the body leaves empty.
func bindConsentParams(c *gin.Context) (consentParams, error) {
	var p consentParams

	switch c.ContentType() {
	case binding.MIMEJSON, binding.MIMEPlain:
		if err := c.ShouldBindJSON(&p); err != nil && !errors.Is(err, io.EOF) {
			return consentParams{}, ErrInvalidRequest
		}
	default:
		if err := c.ShouldBind(&p); err != nil {
			return consentParams{}, ErrInvalidRequest
		}
	}

	fill := func(dst *string, key string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = c.Query(key)
		}
	}
	fillLoose := func(dst *looseString, key string) {
		if strings.TrimSpace(string(*dst)) == "" {
			*dst = looseString(c.Query(key))
		}
	}
	fill(&p.Action, "action")
	fill(&p.Name, "name")
	fill(&p.Email, "email")
	fillLoose(&p.Phone, "phone")
	fillLoose(&p.Consent, "consent")
	fill(&p.ConsentType, "consentType")

	p.Action = strings.TrimSpace(p.Action)
	return p, nil
}

// consentDeclined reports whether the consent flag was sent and is negative.
// An absent flag counts as accepted.
func consentDeclined(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "false", "no", "0", "off", "declined":
		return true
	default:
		return false
	}
}

// looseString decodes JSON strings, numbers and booleans alike, so a phone sent
// as a number or a consent checkbox sent as true binds without error.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = looseString(v)
		return nil
	}
	*s = looseString(data)
	return nil
}
