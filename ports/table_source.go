package ports

import (
	"context"

	"gopairs/domain/pricetable"
)

// TableSource supplies the aligned price table a screen runs over
type TableSource interface {
	ReadTable(ctx context.Context) (*pricetable.Table, error)
}
