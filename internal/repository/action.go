package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mintbay/marketledger/internal/elastic_search"
	"github.com/mintbay/marketledger/internal/entity"
	"github.com/olivere/elastic/v7"
)

var ErrActionNotFound = errors.New("market action not found")

type ActionRepository interface {
	GetActionsByItem(itemId uint64) ([]entity.MarketAction, error)
	GetSales(size, page int) ([]entity.MarketAction, int64, error)
}

type actionRepository struct {
	elastic elastic_search.Index
}

func NewActionRepository(elastic elastic_search.Index) ActionRepository {
	return actionRepository{elastic}
}

func (r actionRepository) GetActionsByItem(itemId uint64) ([]entity.MarketAction, error) {
	result, err := r.elastic.GetClient().
		Search(elastic_search.MarketActionIndex.Get()).
		Query(elastic.NewTermQuery("itemId", itemId)).
		Sort("at", true).
		Size(100).
		Do(context.Background())

	actions, _, err := r.findMany(result, err)
	if err != nil {
		return nil, err
	}
	if len(actions) == 0 {
		return nil, ErrActionNotFound
	}

	return actions, nil
}

func (r actionRepository) GetSales(size, page int) ([]entity.MarketAction, int64, error) {
	result, err := r.elastic.GetClient().
		Search(elastic_search.MarketActionIndex.Get()).
		Query(elastic.NewTermQuery("action", string(entity.SaleAction))).
		Sort("at", false).
		Size(size).
		From((page * size) - size).
		Do(context.Background())

	return r.findMany(result, err)
}

func (r actionRepository) findMany(results *elastic.SearchResult, err error) ([]entity.MarketAction, int64, error) {
	if err != nil {
		return nil, 0, err
	}

	actions := make([]entity.MarketAction, 0)
	for _, hit := range results.Hits.Hits {
		var action entity.MarketAction
		if err := json.Unmarshal(hit.Source, &action); err != nil {
			return nil, 0, err
		}
		actions = append(actions, action)
	}

	return actions, results.TotalHits(), nil
}
