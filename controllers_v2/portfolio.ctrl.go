package v2controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sangini/invoicehub/lib/service"
)

// PortfolioController : Investor portfolio controller struct
type PortfolioController struct {
	svc *service.InvoicehubService
}

func NewPortfolioController(svc *service.InvoicehubService) *PortfolioController {
	return &PortfolioController{svc: svc}
}

type PortfolioResponseBody struct {
	Holdings []service.Holding `json:"holdings"`
}

// GetPortfolio godoc
// @Summary      Retrieve own portfolio
// @Description  Token positions per invoice after secondary-market transfers.
// @Produce      json
// @Tags         Account
// @Success      200  {object}  PortfolioResponseBody
// @Router       /v2/portfolio [get]
// @Security     OAuth2Password
func (controller *PortfolioController) GetPortfolio(c echo.Context) error {
	userID := c.Get("UserID").(int64)

	holdings, err := controller.svc.HoldingsFor(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &PortfolioResponseBody{Holdings: holdings})
}
