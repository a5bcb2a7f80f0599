package source

import (
	"context"
	"fmt"
	"iter"

	"civicdata/us-ingester/internal/config"
	"civicdata/us-ingester/internal/model"
)

// Source produces records lazily. A non-nil error in the sequence is an
// *ItemError standing in for one skipped item.
type Source interface {
	Name() string
	Scrape(ctx context.Context) iter.Seq2[model.Record, error]
}

var (
	_ Source = (*BillSource)(nil)
	_ Source = (*LegislatorSource)(nil)
	_ Source = (*FloorSource)(nil)
)

func NewFromConfig(c config.SourceConfig) (Source, error) {
	switch c.Type {
	case "bills":
		return NewBillSource(c.Bills), nil
	case "legislators":
		return NewLegislatorSource(c.Legislators), nil
	case "floor":
		fs, err := NewFloorSource(c.Floor)
		if err != nil {
			return nil, err
		}
		return fs, nil
	default:
		return nil, fmt.Errorf("unknown source type: %s", c.Type)
	}
}
