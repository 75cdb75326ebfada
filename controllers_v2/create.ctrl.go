package v2controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sangini/invoicehub/lib/responses"
	"github.com/sangini/invoicehub/lib/service"
)

// CreateUserController : Create user controller struct
type CreateUserController struct {
	svc *service.InvoicehubService
}

func NewCreateUserController(svc *service.InvoicehubService) *CreateUserController {
	return &CreateUserController{svc: svc}
}

type CreateUserRequestBody struct {
	Login         string `json:"login"`
	Password      string `json:"password"`
	Role          string `json:"role"`
	WalletAddress string `json:"wallet_address"`
}
type CreateUserResponseBody struct {
	ID            int64  `json:"id"`
	Login         string `json:"login"`
	Role          string `json:"role"`
	WalletAddress string `json:"wallet_address,omitempty"`
}

// CreateUser godoc
// @Summary      Create an account
// @Description  Create a new account with a login, password and marketplace role. Login and password are generated when omitted.
// @Accept       json
// @Produce      json
// @Tags         Account
// @Param        account  body      CreateUserRequestBody  false  "Create User"
// @Success      200      {object}  CreateUserResponseBody
// @Failure      400      {object}  responses.ErrorResponse
// @Router       /v2/users [post]
func (controller *CreateUserController) CreateUser(c echo.Context) error {

	var body CreateUserRequestBody

	if err := c.Bind(&body); err != nil {
		c.Logger().Errorf("Failed to load create user request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	user, err := controller.svc.CreateUser(c.Request().Context(), body.Login, body.Password, body.Role, body.WalletAddress)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, &CreateUserResponseBody{
		ID:            user.ID,
		Login:         user.Login,
		Role:          user.Role,
		WalletAddress: user.WalletAddress,
	})
}
