package response

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondAPIError writes err using its domain code. Errors without a code
// are reported as INTERNAL, and server-side failures never leak their cause.
func RespondAPIError(c *gin.Context, err error) {
	e, ok := apierr.As(err)
	if !ok {
		e = apierr.New(apierr.CodeInternal, "", "")
	}
	if e.Code == apierr.CodeRateLimit && e.RetryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(e.RetryAfter.Seconds()))))
	}
	c.AbortWithStatusJSON(apierr.HTTPStatus(e.Code), ErrorEnvelope{
		Error: APIError{
			Message: publicMessage(e),
			Code:    string(e.Code),
		},
	})
}

func publicMessage(e *apierr.Error) string {
	switch e.Code {
	case apierr.CodeInternal:
		return "internal server error"
	case apierr.CodeDataIntegrity:
		return "stored data failed an integrity check"
	case apierr.CodeConfiguration:
		return "service is not configured correctly"
	}
	if e.Message == "" {
		return string(e.Code)
	}
	return e.Message
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

func RespondAccepted(c *gin.Context, payload any) {
	c.JSON(http.StatusAccepted, payload)
}
