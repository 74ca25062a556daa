package httpgin

import (
	"encoding/json"
	"hash/fnv"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// respondCached writes v as JSON with a content ETag and a private max-age.
// Clients replaying a matching ETag get 304 and no body.
func respondCached(c *gin.Context, v any, maxAge time.Duration) {
	b, err := json.Marshal(v)
	if err != nil {
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}

	h := fnv.New64a()
	_, _ = h.Write(b)
	tag := `W/"` + strconv.FormatUint(h.Sum64(), 16) + `"`

	c.Header("ETag", tag)
	c.Header("Cache-Control", "private, max-age="+strconv.Itoa(int(maxAge.Seconds())))
	c.Header("Vary", HeaderUserRole)

	if etagMatches(c.GetHeader("If-None-Match"), tag) {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", b)
}

// etagMatches reports whether the If-None-Match header lists tag.
// Comparison is weak, so W/ prefixes are ignored on both sides.
func etagMatches(header, tag string) bool {
	if header == "" {
		return false
	}
	want := strings.TrimPrefix(tag, "W/")
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == want {
			return true
		}
	}
	return false
}
