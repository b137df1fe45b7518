package database

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"pharmacrm/internal/repository"
)

// TxManager runs multi-document writes in a Mongo transaction. Standalone
// servers do not support transactions; with enabled=false fn runs directly and
// only the per-document conditional updates keep stock consistent.
type TxManager struct {
	client  *mongo.Client
	enabled bool
}

var _ repository.TxManager = (*TxManager)(nil)

func NewTxManager(client *mongo.Client, enabled bool) *TxManager {
	return &TxManager{client: client, enabled: enabled}
}

func (t *TxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !t.enabled || mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	session, err := t.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}
