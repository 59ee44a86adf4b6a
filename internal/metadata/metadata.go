package metadata

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

var ErrInvalidUri = errors.New("invalid metadata uri")

// Service fetches the JSON document behind a token uri. Documents are
// cached so repeated item queries don't refetch.
type Service interface {
	GetTokenMetadata(uri string) (map[string]interface{}, error)
}

type service struct {
	client *retryablehttp.Client
	cache  *cache.Cache
}

func NewMetadataService(client *retryablehttp.Client, cache *cache.Cache) Service {
	return service{client, cache}
}

func (s service) GetTokenMetadata(uri string) (map[string]interface{}, error) {
	if len(uri) < 4 || uri[:4] != "http" {
		return nil, ErrInvalidUri
	}

	if cached, found := s.cache.Get(uri); found {
		return cached.(map[string]interface{}), nil
	}

	resp, err := s.client.Get(uri)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, errors.New(resp.Status)
	}

	buf := new(bytes.Buffer)
	_, err = buf.ReadFrom(resp.Body)
	if err != nil {
		return nil, err
	}

	var md map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &md); err != nil {
		return nil, err
	}

	s.cache.Set(uri, md, cache.DefaultExpiration)

	zap.L().With(zap.String("uri", uri)).Debug("Metadata: Fetched token metadata")

	return md, nil
}
