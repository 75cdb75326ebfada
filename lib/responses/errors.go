package responses

import (
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
	"github.com/sangini/invoicehub/lib/service"
)

type ErrorResponse struct {
	Error          bool   `json:"error"`
	Code           string `json:"code"`
	Message        string `json:"message"`
	Status         string `json:"status,omitempty"`
	Available      string `json:"available,omitempty"`
	HttpStatusCode int    `json:"-"`
}

var GeneralServerError = ErrorResponse{
	Error:          true,
	Code:           "server_error",
	Message:        "Something went wrong. Please try again later",
	HttpStatusCode: 500,
}

var BadArgumentsError = ErrorResponse{
	Error:          true,
	Code:           service.CodeBadArguments,
	Message:        "Bad arguments",
	HttpStatusCode: 400,
}

var BadAuthError = ErrorResponse{
	Error:          true,
	Code:           "bad_auth",
	Message:        "bad auth",
	HttpStatusCode: 401,
}

var AccountDeactivatedError = ErrorResponse{
	Error:          true,
	Code:           "account_deactivated",
	Message:        "Account has been suspended. Please contact support for further assistance.",
	HttpStatusCode: 401,
}

// kindStatusCodes maps core error kinds to HTTP statuses. Conflicts render
// as 409 so clients can refresh entity state and retry deliberately.
var kindStatusCodes = map[service.Kind]int{
	service.KindValidation:           http.StatusBadRequest,
	service.KindStateConflict:        http.StatusConflict,
	service.KindInsufficientResource: http.StatusBadRequest,
	service.KindExternalDependency:   http.StatusBadGateway,
	service.KindNotFound:             http.StatusNotFound,
	service.KindUnauthorized:         http.StatusForbidden,
}

// Convert turns a core error into its wire shape, or the general 500
// response for anything unclassified.
func Convert(err error) ErrorResponse {
	var coreErr *service.Error
	if !errors.As(err, &coreErr) {
		return GeneralServerError
	}
	status, ok := kindStatusCodes[coreErr.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	response := ErrorResponse{
		Error:          true,
		Code:           coreErr.Code,
		Message:        coreErr.Message,
		Status:         coreErr.CurrentStatus,
		HttpStatusCode: status,
	}
	if coreErr.Kind == service.KindInsufficientResource {
		response.Available = coreErr.Available.String()
	}
	return response
}

func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var coreErr *service.Error
	if errors.As(err, &coreErr) {
		response := Convert(err)
		c.JSON(response.HttpStatusCode, &response)
		return
	}

	c.Logger().Error(err)
	if hub := sentryecho.GetHubFromContext(c); hub != nil {
		hub.WithScope(func(scope *sentry.Scope) {
			scope.SetExtra("UserID", c.Get("UserID"))
			hub.CaptureException(err)
		})
	}
	if he, ok := err.(*echo.HTTPError); ok {
		c.JSON(he.Code, he.Message)
		return
	}
	c.JSON(http.StatusInternalServerError, GeneralServerError)
}
