package api

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/mintbay/marketledger/internal/bank"
	"github.com/mintbay/marketledger/internal/entity"
	"github.com/mintbay/marketledger/internal/ledger"
	"github.com/mintbay/marketledger/internal/metadata"
	"github.com/mintbay/marketledger/internal/repository"
	"github.com/mintbay/marketledger/internal/token"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// Server exposes the ledger operations over HTTP. Caller identity and the
// attached payment are explicit request fields; there is no wallet here.
type Server struct {
	ledger   ledger.Ledger
	tokens   token.Registry
	metadata metadata.Service
	cache    *cache.Cache
	feed     *Feed
	actions  repository.ActionRepository
}

// NewServer wires the HTTP surface. The feed and the action repository are
// optional; nil disables the matching routes.
func NewServer(ledger ledger.Ledger, tokens token.Registry, metadata metadata.Service, cache *cache.Cache, feed *Feed, actions repository.ActionRepository) Server {
	return Server{ledger, tokens, metadata, cache, feed, actions}
}

func (s Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/items", s.handleFetchItems).Methods("GET")
	r.HandleFunc("/items", s.handleCreateItem).Methods("POST")
	r.HandleFunc("/items/{itemId}", s.handleGetItem).Methods("GET")
	r.HandleFunc("/sales", s.handleCreateSale).Methods("POST")
	r.HandleFunc("/listing-price", s.handleGetListingPrice).Methods("GET")
	r.HandleFunc("/listing-price", s.handleUpdateListingFee).Methods("PUT")

	if s.actions != nil {
		r.HandleFunc("/items/{itemId}/history", s.handleItemHistory).Methods("GET")
	}

	if s.feed != nil {
		r.HandleFunc("/ws", s.feed.Handle)
	}

	r.NotFoundHandler = notFoundHandler()

	return r
}

type itemView struct {
	ItemId   uint64 `json:"itemId"`
	Price    string `json:"price"`
	TokenId  uint64 `json:"tokenId"`
	Seller   string `json:"seller"`
	Owner    string `json:"owner"`
	TokenUri string `json:"tokenUri"`
}

type createItemRequest struct {
	Caller        string `json:"caller"`
	AssetContract string `json:"assetContract"`
	TokenId       uint64 `json:"tokenId"`
	Price         string `json:"price"`
	Payment       string `json:"payment"`
}

type createSaleRequest struct {
	Caller        string `json:"caller"`
	AssetContract string `json:"assetContract"`
	ItemId        uint64 `json:"itemId"`
	Payment       string `json:"payment"`
}

type updateFeeRequest struct {
	Caller string `json:"caller"`
	Fee    string `json:"fee"`
}

func (s Server) handleFetchItems(w http.ResponseWriter, r *http.Request) {
	views := make([]itemView, 0)
	for item := range s.ledger.FetchMarketItems() {
		views = append(views, s.view(item))
	}

	writeJson(w, http.StatusOK, views)
}

func (s Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	itemId, err := strconv.ParseUint(mux.Vars(r)["itemId"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid item id"))
		return
	}

	item, err := s.ledger.GetItem(itemId)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	view := s.view(item)

	response := struct {
		itemView
		Sold     bool                   `json:"sold"`
		Metadata map[string]interface{} `json:"metadata,omitempty"`
	}{itemView: view, Sold: item.Sold}

	if md, err := s.metadata.GetTokenMetadata(view.TokenUri); err == nil {
		response.Metadata = md
	} else {
		zap.L().With(zap.Error(err), zap.Uint64("itemId", itemId)).Debug("Metadata not available")
	}

	writeJson(w, http.StatusOK, response)
}

func (s Server) handleItemHistory(w http.ResponseWriter, r *http.Request) {
	itemId, err := strconv.ParseUint(mux.Vars(r)["itemId"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid item id"))
		return
	}

	actions, err := s.actions.GetActionsByItem(itemId)
	if err != nil {
		if errors.Is(err, repository.ErrActionNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		zap.L().With(zap.Error(err), zap.Uint64("itemId", itemId)).Error("Failed to fetch item history")
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJson(w, http.StatusOK, actions)
}

func (s Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	price, err := parseAmount(req.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	payment, err := parseAmount(req.Payment)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	itemId, err := s.ledger.CreateMarketItem(
		entity.NewAddress(req.Caller),
		entity.NewAddress(req.AssetContract),
		req.TokenId,
		price,
		payment,
	)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJson(w, http.StatusCreated, map[string]uint64{"itemId": itemId})
}

func (s Server) handleCreateSale(w http.ResponseWriter, r *http.Request) {
	var req createSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	payment, err := parseAmount(req.Payment)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	err = s.ledger.CreateMarketSale(
		entity.NewAddress(req.Caller),
		entity.NewAddress(req.AssetContract),
		req.ItemId,
		payment,
	)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJson(w, http.StatusOK, map[string]bool{"sold": true})
}

func (s Server) handleGetListingPrice(w http.ResponseWriter, r *http.Request) {
	writeJson(w, http.StatusOK, map[string]string{"listingPrice": s.ledger.GetListingPrice().String()})
}

func (s Server) handleUpdateListingFee(w http.ResponseWriter, r *http.Request) {
	var req updateFeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	fee, err := parseAmount(req.Fee)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.ledger.UpdateListingFee(entity.NewAddress(req.Caller), fee); err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJson(w, http.StatusOK, map[string]string{"listingPrice": s.ledger.GetListingPrice().String()})
}

// view resolves the tokenUri for an item, the application-layer join the
// web flow performs after fetchMarketItems. Resolutions are cached.
func (s Server) view(item entity.MarketItem) itemView {
	view := itemView{
		ItemId:  item.ItemId,
		Price:   item.Price.String(),
		TokenId: item.TokenId,
		Seller:  item.Seller.String(),
		Owner:   item.Owner.String(),
	}

	cacheKey := "uri-" + item.AssetContract.String() + "-" + strconv.FormatUint(item.TokenId, 10)
	if cached, found := s.cache.Get(cacheKey); found {
		view.TokenUri = cached.(string)
		return view
	}

	contract, err := s.tokens.Resolve(item.AssetContract)
	if err != nil {
		zap.L().With(zap.Error(err), zap.String("contract", item.AssetContract.String())).Warn("Unknown asset contract for item")
		return view
	}

	uri, err := contract.TokenURI(item.TokenId)
	if err != nil {
		zap.L().With(zap.Error(err), zap.Uint64("tokenId", item.TokenId)).Warn("Failed to resolve token uri")
		return view
	}

	s.cache.Set(cacheKey, uri, cache.DefaultExpiration)
	view.TokenUri = uri

	return view
}

func parseAmount(value string) (*big.Int, error) {
	if value == "" {
		return big.NewInt(0), nil
	}

	amount, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, errors.New("invalid amount: " + value)
	}

	return amount, nil
}

func writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrItemNotFound), errors.Is(err, token.ErrUnknownContract), errors.Is(err, token.ErrTokenNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, ledger.ErrAlreadySold):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, ledger.ErrNotAssetOwner), errors.Is(err, ledger.ErrNotFeeRecipient), errors.Is(err, token.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, err)
	case errors.Is(err, bank.ErrInsufficientFunds):
		writeError(w, http.StatusPaymentRequired, err)
	case errors.Is(err, ledger.ErrInvalidPrice), errors.Is(err, ledger.ErrInvalidFee),
		errors.Is(err, ledger.ErrInsufficientFee), errors.Is(err, ledger.ErrWrongPayment):
		writeError(w, http.StatusBadRequest, err)
	default:
		zap.L().With(zap.Error(err)).Error("Unhandled ledger error")
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJson(w, status, map[string]string{"error": err.Error()})
}

func writeJson(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func notFoundHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, errors.New("page not found"))
	})
}
