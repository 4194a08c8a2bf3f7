package dto

import "github.com/google/uuid"

type FriendRequestRequest struct {
	UserID uuid.UUID `json:"user_id"`
}

type SendDMRequest struct {
	PeerID  uuid.UUID `json:"peer_id"`
	Content string    `json:"content"`
}

type EquipCosmeticsRequest struct {
	Frame string `json:"frame"`
	Flair string `json:"flair"`
}
