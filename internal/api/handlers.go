package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/roach88/pokemart/internal/checkout"
	"github.com/roach88/pokemart/internal/filter"
	"github.com/roach88/pokemart/internal/storefront"
)

// catalogResponse is returned by GET /api/catalog.
type catalogResponse struct {
	Items []storefront.Listing `json:"items"`
	Count int                  `json:"count"`
}

// typesResponse is returned by GET /api/types.
type typesResponse struct {
	Types    []string `json:"types"`
	Fallback bool     `json:"fallback"`
}

// addItemRequest is the body of POST /api/cart/items.
type addItemRequest struct {
	ID       int  `json:"id" binding:"required,gte=1"`
	Quantity *int `json:"quantity"` // omitted means 1
}

// updateItemRequest is the body of PATCH /api/cart/items/:id. A quantity of
// zero or less removes the entry.
type updateItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

func (s *Server) health(c *gin.Context) {
	status := "ok"
	if !s.ctrl.Loaded() {
		status = "loading"
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}

// criteriaFromQuery reads search, type, min, max and sort.
func (s *Server) criteriaFromQuery(c *gin.Context) (filter.Criteria, error) {
	criteria := filter.Criteria{
		Search:        c.Query("search"),
		SelectedTypes: c.QueryArray("type"),
		Price:         s.prices,
		Sort:          filter.ParseSortKey(c.Query("sort")),
	}
	if raw, ok := c.GetQuery("min"); ok {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return filter.Criteria{}, fmt.Errorf("invalid min price %q", raw)
		}
		criteria.Price.Min = decimal.NewNullDecimal(d)
	}
	if raw, ok := c.GetQuery("max"); ok {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return filter.Criteria{}, fmt.Errorf("invalid max price %q", raw)
		}
		criteria.Price.Max = decimal.NewNullDecimal(d)
	}
	return criteria, nil
}

func (s *Server) listCatalog(c *gin.Context) {
	if !s.ctrl.Loaded() {
		writeError(c, storefront.ErrNotLoaded)
		return
	}
	criteria, err := s.criteriaFromQuery(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	listings, err := s.ctrl.Browse(c.Request.Context(), criteria)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, catalogResponse{Items: listings, Count: len(listings)})
}

func (s *Server) listTypes(c *gin.Context) {
	types, fallback := s.ctrl.Types(c.Request.Context())
	c.JSON(http.StatusOK, typesResponse{Types: types, Fallback: fallback})
}

func (s *Server) showCart(c *gin.Context) {
	s.respondWithCart(c, http.StatusOK)
}

func (s *Server) addItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	if err := s.ctrl.AddItem(c.Request.Context(), req.ID, quantity); err != nil {
		writeError(c, err)
		return
	}
	s.respondWithCart(c, http.StatusCreated)
}

func (s *Server) updateItem(c *gin.Context) {
	id, ok := itemID(c)
	if !ok {
		return
	}
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if err := s.ctrl.UpdateQuantity(c.Request.Context(), id, *req.Quantity); err != nil {
		writeError(c, err)
		return
	}
	s.respondWithCart(c, http.StatusOK)
}

func (s *Server) removeItem(c *gin.Context) {
	id, ok := itemID(c)
	if !ok {
		return
	}
	if err := s.ctrl.RemoveItem(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	s.respondWithCart(c, http.StatusOK)
}

func (s *Server) clearCart(c *gin.Context) {
	if err := s.ctrl.ClearCart(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	s.respondWithCart(c, http.StatusOK)
}

func (s *Server) checkout(c *gin.Context) {
	var payment checkout.Payment
	if err := c.ShouldBindJSON(&payment); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	receipt, err := s.ctrl.Checkout(c.Request.Context(), payment)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

func (s *Server) respondWithCart(c *gin.Context, status int) {
	view, err := s.ctrl.Cart(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(status, view)
}

// itemID parses the :id path parameter, replying 400 when it is not a
// positive integer.
func itemID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		badRequest(c, fmt.Sprintf("invalid item id %q", c.Param("id")))
		return 0, false
	}
	return id, true
}
