package handler

import (
	"landlock/internal/escrow"
	"landlock/internal/ledger"
)

type createRequest struct {
	AgreementAddress string `json:"agreement_address"`
}

type depositRequest struct {
	Amount uint64 `json:"amount"`
}

type escrowResponse struct {
	Escrow  *escrow.Escrow `json:"escrow"`
	Address ledger.Address `json:"address"`
}
