package middleware

import (
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

// TrimStrings trims surrounding whitespace from submitted form values before binding.
// Fields named in except (passwords) are left as typed.
func TrimStrings(except ...string) gin.HandlerFunc {
	skip := make(map[string]bool, len(except))
	for _, f := range except {
		skip[f] = true
	}
	return func(c *gin.Context) {
		if isForm(c.Request) {
			if err := c.Request.ParseForm(); err == nil {
				trimValues(c.Request.PostForm, skip)
				trimValues(c.Request.Form, skip)
			}
		}
		c.Next()
	}
}

func trimValues(v url.Values, skip map[string]bool) {
	for k, vs := range v {
		if skip[k] {
			continue
		}
		for i := range vs {
			vs[i] = strings.TrimSpace(vs[i])
		}
	}
}
