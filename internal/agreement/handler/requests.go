package handler

import (
	"landlock/internal/agreement"
	"landlock/internal/ledger"
)

type draftRequest struct {
	TitleNumber  string `json:"title_number"`
	BuyerAddress string `json:"buyer_address"`
	Price        uint64 `json:"price"`
}

type agreementResponse struct {
	Agreement *agreement.Agreement `json:"agreement"`
	Address   ledger.Address       `json:"address"`
}
