package v2controllers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sangini/invoicehub/lib/money"
	"github.com/sangini/invoicehub/lib/responses"
	"github.com/sangini/invoicehub/lib/service"
)

// AdminController : Operator endpoints, guarded by the static admin token.
type AdminController struct {
	svc *service.InvoicehubService
}

func NewAdminController(svc *service.InvoicehubService) *AdminController {
	return &AdminController{svc: svc}
}

type ScanResponseBody struct {
	Transitioned int `json:"transitioned"`
}

// ScanOverdue godoc
// @Summary      Sweep overdue invoices
// @Description  Applies the lazy overdue and defaulted transitions across all past-due invoices.
// @Produce      json
// @Tags         Admin
// @Success      200  {object}  ScanResponseBody
// @Router       /admin/scan-overdue [post]
func (controller *AdminController) ScanOverdue(c echo.Context) error {
	transitioned, err := controller.svc.ScanOverdueInvoices(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &ScanResponseBody{Transitioned: transitioned})
}

type SetKycRequestBody struct {
	Approved bool `json:"approved"`
}

// SetKyc godoc
// @Summary      Set a user's KYC flag
// @Produce      json
// @Tags         Admin
// @Param        id   path  int                true  "User id"
// @Param        kyc  body  SetKycRequestBody  true  "Approval"
// @Success      200  {object}  CreateUserResponseBody
// @Router       /admin/users/{id}/kyc [put]
func (controller *AdminController) SetKyc(c echo.Context) error {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	var body SetKycRequestBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	user, err := controller.svc.SetKyc(c.Request().Context(), userID, body.Approved)
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

type ResolveDisputeRequestBody struct {
	Valid bool `json:"valid"`
}

type ResolveDisputeResponseBody struct {
	Dispute Dispute `json:"dispute"`
	Invoice Invoice `json:"invoice"`
}

// ResolveDispute godoc
// @Summary      Rule on a pending dispute
// @Description  A valid ruling claws all token holdings back; an invalid one unfreezes the invoice.
// @Accept       json
// @Produce      json
// @Tags         Admin
// @Param        ref     path  string                     true  "Invoice id or invoice number"
// @Param        ruling  body  ResolveDisputeRequestBody  true  "Ruling"
// @Success      200  {object}  ResolveDisputeResponseBody
// @Failure      409  {object}  responses.ErrorResponse
// @Router       /admin/invoices/{ref}/resolve-dispute [post]
func (controller *AdminController) ResolveDispute(c echo.Context) error {
	var body ResolveDisputeRequestBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	invoice, _, err := controller.svc.ResolveInvoice(c.Request().Context(), c.Param("ref"))
	if err != nil {
		return err
	}
	dispute, invoice, err := controller.svc.ResolveDispute(c.Request().Context(), invoice.ID, body.Valid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &ResolveDisputeResponseBody{
		Dispute: newDisputeResponse(dispute),
		Invoice: *newInvoiceResponse(invoice),
	})
}

type InsurancePoolResponseBody struct {
	Balance money.Money `json:"balance"`
}

// GetInsurancePool godoc
// @Summary      Insurance pool balance
// @Description  Accumulated levy less paid claims.
// @Produce      json
// @Tags         Admin
// @Success      200  {object}  InsurancePoolResponseBody
// @Router       /admin/insurance-pool [get]
func (controller *AdminController) GetInsurancePool(c echo.Context) error {
	balance, err := controller.svc.InsurancePoolBalance(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &InsurancePoolResponseBody{Balance: balance})
}
