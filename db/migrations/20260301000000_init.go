package migrations

import (
	"context"

	"github.com/sangini/invoicehub/db/models"
	"github.com/uptrace/bun"
)

/* Since this init will reflect the latest model fields when run on a fresh db,
make sure that when you add/remove columns in subsequent migrations
IfNotExists/IfExists is used, otherwise it's going to result in errors. */
func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {

		if _, err := db.NewCreateTable().Model((*models.User)(nil)).Exec(ctx); err != nil {
			return err
		}
		if _, err := db.NewCreateTable().Model((*models.Invoice)(nil)).Exec(ctx); err != nil {
			return err
		}
		if _, err := db.NewCreateTable().Model((*models.Investment)(nil)).Exec(ctx); err != nil {
			return err
		}
		if _, err := db.NewCreateTable().Model((*models.SellOrder)(nil)).Exec(ctx); err != nil {
			return err
		}
		if _, err := db.NewCreateTable().Model((*models.SupplierPayout)(nil)).Exec(ctx); err != nil {
			return err
		}
		if _, err := db.NewCreateTable().Model((*models.InsuranceClaim)(nil)).Exec(ctx); err != nil {
			return err
		}
		if _, err := db.NewCreateTable().Model((*models.TokenTransfer)(nil)).Exec(ctx); err != nil {
			return err
		}
		if _, err := db.NewCreateTable().Model((*models.Dispute)(nil)).Exec(ctx); err != nil {
			return err
		}

		// The ledger re-derives seller availability from invoice and order
		// state on every request, keep those lookups indexed.
		if _, err := db.NewCreateIndex().Model((*models.Investment)(nil)).
			Index("investments_invoice_investor_idx").
			Column("invoice_id", "investor_id").Exec(ctx); err != nil {
			return err
		}
		if _, err := db.NewCreateIndex().Model((*models.SellOrder)(nil)).
			Index("sell_orders_invoice_seller_idx").
			Column("invoice_id", "seller_id").Exec(ctx); err != nil {
			return err
		}

		return nil
	}, nil)
}
