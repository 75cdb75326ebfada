package v2controllers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sangini/invoicehub/db/models"
	"github.com/sangini/invoicehub/lib/money"
	"github.com/sangini/invoicehub/lib/responses"
	"github.com/sangini/invoicehub/lib/service"
)

// InvoiceController : Invoice lifecycle controller struct
type InvoiceController struct {
	svc *service.InvoicehubService
}

func NewInvoiceController(svc *service.InvoicehubService) *InvoiceController {
	return &InvoiceController{svc: svc}
}

type Invoice struct {
	ID              int64       `json:"id"`
	InvoiceNum      string      `json:"invoice_num"`
	SupplierID      int64       `json:"supplier_id"`
	BuyerID         int64       `json:"buyer_id"`
	FaceAmount      money.Money `json:"face_amount"`
	Currency        string      `json:"currency"`
	Status          string      `json:"status"`
	DueDate         time.Time   `json:"due_date"`
	Memo            string      `json:"memo,omitempty"`
	PurchaseOrder   string      `json:"purchase_order,omitempty"`
	DocumentHash    string      `json:"document_hash,omitempty"`
	TokenSymbol     string      `json:"token_symbol,omitempty"`
	TotalTokens     money.Money `json:"total_tokens"`
	TokensSold      money.Money `json:"tokens_sold"`
	TokensRemaining money.Money `json:"tokens_remaining"`
	AmountRaised    money.Money `json:"amount_raised"`
	CreatedAt       time.Time   `json:"created_at"`
}

func newInvoiceResponse(invoice *models.Invoice) *Invoice {
	return &Invoice{
		ID:              invoice.ID,
		InvoiceNum:      invoice.InvoiceNum,
		SupplierID:      invoice.SupplierID,
		BuyerID:         invoice.BuyerID,
		FaceAmount:      invoice.FaceAmount,
		Currency:        invoice.Currency,
		Status:          invoice.Status,
		DueDate:         invoice.DueDate,
		Memo:            invoice.Memo,
		PurchaseOrder:   invoice.PurchaseOrder,
		DocumentHash:    invoice.DocumentHash,
		TokenSymbol:     invoice.TokenSymbol,
		TotalTokens:     invoice.TotalTokens,
		TokensSold:      invoice.TokensSold,
		TokensRemaining: invoice.TokensRemaining,
		AmountRaised:    invoice.AmountRaised,
		CreatedAt:       invoice.CreatedAt,
	}
}

type MintInvoiceRequestBody struct {
	BuyerID       int64  `json:"buyer_id" validate:"required"`
	FaceAmount    string `json:"face_amount" validate:"required"`
	Currency      string `json:"currency" validate:"required"`
	DueDate       string `json:"due_date" validate:"required"`
	Memo          string `json:"memo"`
	PurchaseOrder string `json:"purchase_order"`
	DocumentHash  string `json:"document_hash"`
}

// MintInvoice godoc
// @Summary      Mint a draft invoice
// @Description  Create a draft invoice addressed to a buyer. The draft stays inert until the buyer approves it.
// @Accept       json
// @Produce      json
// @Tags         Invoice
// @Param        invoice  body      MintInvoiceRequestBody  true  "Mint Invoice"
// @Success      200      {object}  Invoice
// @Failure      400      {object}  responses.ErrorResponse
// @Router       /v2/invoices [post]
// @Security     OAuth2Password
func (controller *InvoiceController) MintInvoice(c echo.Context) error {
	userID := c.Get("UserID").(int64)

	var body MintInvoiceRequestBody
	if err := c.Bind(&body); err != nil {
		c.Logger().Errorf("Failed to load mint invoice request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	faceAmount, err := money.FromString(body.FaceAmount)
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	dueDate, err := time.Parse(time.RFC3339, body.DueDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	invoice, err := controller.svc.MintDraft(c.Request().Context(), userID, body.BuyerID,
		faceAmount, body.Currency, dueDate, body.Memo, body.PurchaseOrder, body.DocumentHash)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newInvoiceResponse(invoice))
}

// ApproveInvoice godoc
// @Summary      Approve a draft invoice
// @Description  Buyer acceptance. Verification mints tokens 1:1 against the face amount.
// @Produce      json
// @Tags         Invoice
// @Param        ref  path      string  true  "Invoice id or invoice number"
// @Success      200  {object}  Invoice
// @Failure      409  {object}  responses.ErrorResponse
// @Router       /v2/invoices/{ref}/approve [post]
// @Security     OAuth2Password
func (controller *InvoiceController) ApproveInvoice(c echo.Context) error {
	userID := c.Get("UserID").(int64)

	invoice, _, err := controller.svc.ResolveInvoice(c.Request().Context(), c.Param("ref"))
	if err != nil {
		return err
	}
	invoice, err = controller.svc.ApproveInvoice(c.Request().Context(), invoice.ID, userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newInvoiceResponse(invoice))
}

// RevokeInvoice godoc
// @Summary      Revoke an invoice
// @Description  Withdraw a draft at any time, or a verified invoice once past due.
// @Produce      json
// @Tags         Invoice
// @Param        ref  path      string  true  "Invoice id or invoice number"
// @Success      200  {object}  Invoice
// @Failure      409  {object}  responses.ErrorResponse
// @Router       /v2/invoices/{ref}/revoke [post]
// @Security     OAuth2Password
func (controller *InvoiceController) RevokeInvoice(c echo.Context) error {
	userID := c.Get("UserID").(int64)

	invoice, _, err := controller.svc.ResolveInvoice(c.Request().Context(), c.Param("ref"))
	if err != nil {
		return err
	}
	invoice, err = controller.svc.RevokeInvoice(c.Request().Context(), invoice.ID, userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newInvoiceResponse(invoice))
}

// GetInvoice godoc
// @Summary      Retrieve an invoice
// @Produce      json
// @Tags         Invoice
// @Param        ref  path      string  true  "Invoice id or invoice number"
// @Success      200  {object}  Invoice
// @Failure      404  {object}  responses.ErrorResponse
// @Router       /v2/invoices/{ref} [get]
// @Security     OAuth2Password
func (controller *InvoiceController) GetInvoice(c echo.Context) error {
	invoice, _, err := controller.svc.ResolveInvoice(c.Request().Context(), c.Param("ref"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newInvoiceResponse(invoice))
}

type VerifyDocumentResponseBody struct {
	InvoiceNum string `json:"invoice_num"`
	Matches    bool   `json:"matches"`
}

// VerifyDocument godoc
// @Summary      Verify an invoice document hash
// @Description  Compares the presented hash against the one the invoice was minted with.
// @Produce      json
// @Tags         Invoice
// @Param        ref   path   string  true  "Invoice id or invoice number"
// @Param        hash  query  string  true  "Document hash"
// @Success      200  {object}  VerifyDocumentResponseBody
// @Failure      404  {object}  responses.ErrorResponse
// @Router       /v2/invoices/{ref}/verify-document [get]
// @Security     OAuth2Password
func (controller *InvoiceController) VerifyDocument(c echo.Context) error {
	hash := c.QueryParam("hash")
	if hash == "" {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	invoice, _, err := controller.svc.ResolveInvoice(c.Request().Context(), c.Param("ref"))
	if err != nil {
		return err
	}
	matches, err := controller.svc.VerifyDocument(c.Request().Context(), invoice.ID, hash)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &VerifyDocumentResponseBody{
		InvoiceNum: invoice.InvoiceNum,
		Matches:    matches,
	})
}

type GetInvoicesResponseBody struct {
	Invoices []Invoice `json:"invoices"`
}

// GetInvoices godoc
// @Summary      Retrieve own invoices
// @Description  Returns the invoices the authenticated user minted as supplier
// @Produce      json
// @Tags         Invoice
// @Success      200  {object}  GetInvoicesResponseBody
// @Router       /v2/invoices [get]
// @Security     OAuth2Password
func (controller *InvoiceController) GetInvoices(c echo.Context) error {
	userID := c.Get("UserID").(int64)

	invoices, err := controller.svc.InvoicesForSupplier(c.Request().Context(), userID)
	if err != nil {
		return err
	}

	response := make([]Invoice, len(invoices))
	for i, invoice := range invoices {
		response[i] = *newInvoiceResponse(&invoice)
	}
	return c.JSON(http.StatusOK, &GetInvoicesResponseBody{Invoices: response})
}
