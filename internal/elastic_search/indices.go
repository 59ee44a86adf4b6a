package elastic_search

import (
	"fmt"

	"github.com/mintbay/marketledger/internal/config"
)

type Indices string

var (
	MarketActionIndex Indices = "marketaction"
	DevErrorIndex     Indices = "deverror"
)

// Get prefixes the index with the network and index name
func (i *Indices) Get() string {
	return fmt.Sprintf("%s.%s.%s", config.Get().Network, config.Get().Index, string(*i))
}

func All() []Indices {
	return []Indices{
		MarketActionIndex,
		DevErrorIndex,
	}
}

var mappings = map[Indices]string{
	MarketActionIndex: `{
  "mappings": {
    "properties": {
      "itemId":        {"type": "long"},
      "assetContract": {"type": "keyword"},
      "tokenId":       {"type": "long"},
      "action":        {"type": "keyword"},
      "seller":        {"type": "keyword"},
      "buyer":         {"type": "keyword"},
      "price":         {"type": "keyword"},
      "fee":           {"type": "keyword"},
      "at":            {"type": "date"}
    }
  }
}`,
	DevErrorIndex: `{
  "mappings": {
    "properties": {
      "time":      {"type": "date"},
      "component": {"type": "keyword"},
      "name":      {"type": "keyword"},
      "error":     {"type": "text"}
    }
  }
}`,
}
