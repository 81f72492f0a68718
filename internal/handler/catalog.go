package handler

import (
	"net/http"
	"strconv"

	"github.com/sambamart/storefront/internal/api"
	"github.com/sambamart/storefront/internal/domain/catalog"
)

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	var f catalog.Filter

	q := r.URL.Query()
	if raw := q.Get("categoryId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			api.WriteError(w, http.StatusBadRequest, "Invalid categoryId")
			return
		}
		f.CategoryID = &id
	}
	f.Search = q.Get("search")

	products, err := h.catalog.ListProducts(r.Context(), f)
	if err != nil {
		fail(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, api.NewProducts(products))
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		fail(w, r, catalog.ErrProductNotFound)
		return
	}

	p, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	v := api.NewProduct(*p)
	api.WriteJSON(w, http.StatusOK, &v)
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, api.NewCategories(categories))
}

func (h *Handler) getCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		fail(w, r, catalog.ErrCategoryNotFound)
		return
	}

	c, err := h.catalog.GetCategory(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	v := api.NewCategory(*c)
	api.WriteJSON(w, http.StatusOK, &v)
}
