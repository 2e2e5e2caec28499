package handler

import (
	"net/http"

	"regtechhorizon/internal/dto"
	"regtechhorizon/internal/service"

	"github.com/labstack/echo/v4"
)

type DirectoryHandler struct {
	Service *service.DirectoryService
}

func NewDirectoryHandler(svc *service.DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{Service: svc}
}

func (h *DirectoryHandler) ListCompanies(c echo.Context) error {
	limit, offset := parseLimitOffset(c)
	companies, err := h.Service.ListCompanies(
		c.Request().Context(),
		c.QueryParam("q"),
		c.QueryParam("region"),
		limit,
		offset,
	)
	if err != nil {
		return writeServiceError(c, err)
	}

	response := dto.DirectoryResponse{
		Companies: make([]dto.CompanyResponse, 0, len(companies)),
		Limit:     limit,
		Offset:    offset,
	}
	for i := range companies {
		response.Companies = append(response.Companies, dto.CompanyResponseFromEntity(&companies[i]))
	}
	return c.JSON(http.StatusOK, response)
}
