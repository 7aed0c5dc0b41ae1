package handler

import (
	"landlock/internal/ledger"
	"landlock/internal/title"
)

type assignRequest struct {
	OwnerAddress           string  `json:"owner_address"`
	TitleNumber            string  `json:"title_number"`
	Location               string  `json:"location"`
	Acreage                float64 `json:"acreage"`
	DistrictRegistry       string  `json:"district_registry"`
	RegistryMapsheetNumber uint64  `json:"registry_mapsheet_number"`
}

type markForSaleRequest struct {
	Price uint64 `json:"price"`
}

type searchRequest struct {
	TitleNumber     string `json:"title_number"`
	SearcherAddress string `json:"searcher_address"`
}

type deedResponse struct {
	Deed    *title.Deed    `json:"deed"`
	Address ledger.Address `json:"address"`
}

type listingResponse struct {
	Listing *title.Listing `json:"listing"`
	Address ledger.Address `json:"address"`
}

type searchResponse struct {
	Deed   *title.Deed   `json:"deed"`
	Lookup *title.Lookup `json:"lookup"`
}
