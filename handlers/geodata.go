package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prior-it/geodata/core"
	"github.com/prior-it/geodata/geodata"
	"github.com/prior-it/geodata/server"
)

// PagedResponse is the JSON body of a paged query.
type PagedResponse struct {
	Items           []geodata.Record `json:"items"`
	TotalCount      int              `json:"totalCount"`
	Page            int              `json:"page"`
	PageSize        int              `json:"pageSize"`
	TotalPages      int              `json:"totalPages"`
	HasNextPage     bool             `json:"hasNextPage"`
	HasPreviousPage bool             `json:"hasPreviousPage"`
	StartIndex      int              `json:"startIndex"`
	EndIndex        int              `json:"endIndex"`
}

func newPagedResponse(page core.PagedResult[geodata.Record]) PagedResponse {
	return PagedResponse{
		Items:           page.Items,
		TotalCount:      page.TotalCount,
		Page:            page.Page,
		PageSize:        page.PageSize,
		TotalPages:      page.TotalPages(),
		HasNextPage:     page.HasNextPage(),
		HasPreviousPage: page.HasPreviousPage(),
		StartIndex:      page.StartIndex(),
		EndIndex:        page.EndIndex(),
	}
}

func GetAll(request *server.Request, state *State) error {
	records, err := state.Records.GetAll(request.Context())
	if err != nil {
		return err
	}
	return request.JSON(http.StatusOK, records)
}

func GetPaged(request *server.Request, state *State) error {
	var params core.PaginationParameters
	if err := request.ParseQuery(&params); err != nil {
		return err
	}
	request.LogString("search", params.Search)
	page, err := state.Records.GetPaged(request.Context(), params)
	if err != nil {
		return err
	}
	return request.JSON(http.StatusOK, newPagedResponse(page))
}

func GetByID(request *server.Request, state *State) error {
	id, err := request.PathID("id")
	if err != nil {
		return err
	}
	request.LogField("record_id", slog.IntValue(int(id)))
	record, err := state.Records.GetByID(request.Context(), id)
	if err != nil {
		return err
	}
	return request.JSON(http.StatusOK, record)
}

func Create(request *server.Request, state *State) error {
	var body geodata.Record
	if err := request.ParseBody(&body); err != nil {
		return err
	}
	created, err := state.Records.Create(request.Context(), body.Input())
	if err != nil {
		return err
	}
	request.LogField("record_id", slog.IntValue(int(created.ID)))
	return request.Created(fmt.Sprintf("%s/%v", BasePath, created.ID), created)
}

func Update(request *server.Request, state *State) error {
	id, err := request.PathID("id")
	if err != nil {
		return err
	}
	request.LogField("record_id", slog.IntValue(int(id)))
	var body geodata.Record
	if err := request.ParseBody(&body); err != nil {
		return err
	}
	updated, err := state.Records.Update(request.Context(), id, body.Domain())
	if err != nil {
		return err
	}
	return request.JSON(http.StatusOK, updated)
}

func Delete(request *server.Request, state *State) error {
	id, err := request.PathID("id")
	if err != nil {
		return err
	}
	request.LogField("record_id", slog.IntValue(int(id)))
	if err := state.Records.Delete(request.Context(), id); err != nil {
		return err
	}
	return request.NoContent()
}
