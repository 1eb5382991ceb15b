package handler

import (
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"fortunaflow/internal/domain"
	"fortunaflow/internal/middleware"
)

// bindID parses the ":id" path parameter as a UUID.
func bindID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, domain.NewSchemaError("invalid id")
	}
	return id, nil
}

// bindOptionalUUIDQuery parses a query parameter as a UUID pointer, nil
// when absent.
func bindOptionalUUIDQuery(c echo.Context, name string) (*uuid.UUID, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return nil, domain.NewSchemaError(name + " must be a valid id")
	}
	return &id, nil
}

// pageFromQuery reads page/page_size/sort query params into domain.Page,
// clamped per the §6 pagination floors.
func pageFromQuery(c echo.Context) domain.Page {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))
	return domain.Page{Page: page, PageSize: pageSize, Sort: c.QueryParam("sort")}.Normalize()
}

// dctx is a short alias used throughout the handler package.
func dctx(c echo.Context) domain.DataContext {
	return middleware.GetDataContext(c)
}
