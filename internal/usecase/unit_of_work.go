package usecase

import "context"

// RunInTx runs fn inside a transaction. The transaction is committed only when
// fn returns nil; any error, early return or panic rolls it back.
func RunInTx(ctx context.Context, txManager TransactionManager, fn func(tx Transaction) error) error {
	tx, err := txManager.Begin(ctx)
	if err != nil {
		return err
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	committed = true

	return nil
}
