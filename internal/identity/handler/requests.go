package handler

import (
	"landlock/internal/identity"
	"landlock/internal/ledger"
)

type addRegistrarRequest struct {
	Authority string `json:"authority"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	IDNumber  string `json:"id_number"`
}

type addRegistrarResponse struct {
	Registrar      *identity.Registrar `json:"registrar"`
	InvitationCode string              `json:"invitation_code"`
}

type confirmRegistrarRequest struct {
	InvitationCode string `json:"invitation_code"`
}

type createUserRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	IDNumber    string `json:"id_number"`
	PhoneNumber string `json:"phone_number"`
}

type createUserResponse struct {
	User    *identity.User `json:"user"`
	Address ledger.Address `json:"address"`
}
