package transport

import (
	cache "github.com/SporkHubr/echo-http-cache"
	"github.com/labstack/echo/v4"
	v2controllers "github.com/sangini/invoicehub/controllers_v2"
	"github.com/sangini/invoicehub/lib/service"
)

func RegisterV2Endpoints(svc *service.InvoicehubService, e *echo.Echo, secured *echo.Group, securedWithStrictRateLimit *echo.Group, strictRateLimitMiddleware echo.MiddlewareFunc, adminMw echo.MiddlewareFunc, logMw echo.MiddlewareFunc, cacheClient *cache.Client) {
	e.GET("/health", v2controllers.NewHealthController().Check)
	e.POST("/v2/auth", v2controllers.NewAuthController(svc).Auth, strictRateLimitMiddleware)
	if svc.Config.AllowAccountCreation {
		e.POST("/v2/users", v2controllers.NewCreateUserController(svc).CreateUser, strictRateLimitMiddleware)
	}

	invoiceCtrl := v2controllers.NewInvoiceController(svc)
	secured.POST("/v2/invoices", invoiceCtrl.MintInvoice)
	secured.GET("/v2/invoices", invoiceCtrl.GetInvoices)
	secured.GET("/v2/invoices/:ref", invoiceCtrl.GetInvoice)
	secured.POST("/v2/invoices/:ref/approve", invoiceCtrl.ApproveInvoice)
	secured.POST("/v2/invoices/:ref/revoke", invoiceCtrl.RevokeInvoice)
	secured.GET("/v2/invoices/:ref/verify-document", invoiceCtrl.VerifyDocument)

	disputeCtrl := v2controllers.NewDisputeController(svc)
	secured.POST("/v2/invoices/:ref/dispute", disputeCtrl.RaiseDispute)
	secured.GET("/v2/invoices/:ref/dispute", disputeCtrl.GetDispute)

	auctionCtrl := v2controllers.NewAuctionController(svc)
	secured.POST("/v2/invoices/:ref/auction", auctionCtrl.StartAuction)
	// price quotes are public and only move on whole-hour boundaries
	e.GET("/v2/invoices/:ref/price", auctionCtrl.GetPrice, cacheClient.Middleware())

	fundCtrl := v2controllers.NewFundController(svc)
	securedWithStrictRateLimit.POST("/v2/invoices/:ref/fund", fundCtrl.Fund)
	secured.GET("/v2/investments", fundCtrl.GetInvestments)
	secured.GET("/v2/invoices/:ref/investments", fundCtrl.GetInvoiceInvestments)

	settleCtrl := v2controllers.NewSettleController(svc)
	secured.GET("/v2/invoices/:ref/settlement-amount", settleCtrl.GetSettlementAmount)
	securedWithStrictRateLimit.POST("/v2/invoices/:ref/settle", settleCtrl.Settle)
	securedWithStrictRateLimit.POST("/v2/invoices/:ref/claim-insurance", settleCtrl.ClaimInsurance)

	orderCtrl := v2controllers.NewOrderController(svc)
	secured.POST("/v2/orders", orderCtrl.CreateOrder)
	secured.GET("/v2/orders", orderCtrl.GetOrders)
	secured.GET("/v2/orders/:id", orderCtrl.GetOrder)
	securedWithStrictRateLimit.POST("/v2/orders/:id/fill", orderCtrl.FillOrder)
	secured.POST("/v2/orders/:id/cancel", orderCtrl.CancelOrder)
	secured.GET("/v2/invoices/:ref/orders", orderCtrl.GetInvoiceOrders)
	secured.GET("/v2/invoices/:ref/availability", orderCtrl.GetAvailability)
	secured.POST("/v2/invoices/:ref/transfer", orderCtrl.Transfer)

	secured.GET("/v2/portfolio", v2controllers.NewPortfolioController(svc).GetPortfolio)

	if svc.Config.AdminToken != "" {
		adminCtrl := v2controllers.NewAdminController(svc)
		e.POST("/admin/scan-overdue", adminCtrl.ScanOverdue, adminMw, logMw)
		e.PUT("/admin/users/:id/kyc", adminCtrl.SetKyc, adminMw, logMw)
		e.POST("/admin/invoices/:ref/resolve-dispute", adminCtrl.ResolveDispute, adminMw, logMw)
		e.GET("/admin/insurance-pool", adminCtrl.GetInsurancePool, adminMw, logMw)
	}
}
