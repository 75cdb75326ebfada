package v2controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sangini/invoicehub/lib/responses"
	"github.com/sangini/invoicehub/lib/service"
)

// AuthController : AuthController struct
type AuthController struct {
	svc *service.InvoicehubService
}

func NewAuthController(svc *service.InvoicehubService) *AuthController {
	return &AuthController{
		svc: svc,
	}
}

type AuthRequestBody struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}
type AuthResponseBody struct {
	RefreshToken string `json:"refresh_token"`
	AccessToken  string `json:"access_token"`
}

// Auth godoc
// @Summary      Authenticate
// @Description  Exchange login and password for an access and refresh token pair
// @Accept       json
// @Produce      json
// @Tags         Account
// @Param        credentials  body      AuthRequestBody  false  "Login and password"
// @Success      200          {object}  AuthResponseBody
// @Failure      401          {object}  responses.ErrorResponse
// @Router       /v2/auth [post]
func (controller *AuthController) Auth(c echo.Context) error {

	var body AuthRequestBody

	if err := c.Bind(&body); err != nil {
		c.Logger().Errorf("Failed to load auth request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	accessToken, refreshToken, err := controller.svc.GenerateToken(c.Request().Context(), body.Login, body.Password)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, responses.BadAuthError)
	}

	return c.JSON(http.StatusOK, &AuthResponseBody{
		RefreshToken: refreshToken,
		AccessToken:  accessToken,
	})
}
