package domain

import "github.com/google/uuid"

// Principal is the verified caller of a governance operation
type Principal struct {
	ID    Identity `json:"id"`
	Name  string   `json:"name,omitempty"`
	Email string   `json:"email,omitempty"`
}

// Transfer is one value movement handed to the ledger
type Transfer struct {
	ID     uuid.UUID `json:"id"`
	From   string    `json:"from"`
	To     string    `json:"to"`
	Amount uint64    `json:"amount"`
}

// ClaimResult describes a successful reward claim
type ClaimResult struct {
	TransferID uuid.UUID `json:"transfer_id"`
	Claimant   Identity  `json:"claimant"`
	Amount     uint64    `json:"amount"`
	Cap        uint64    `json:"cap"`
	Claimed    uint64    `json:"claimed"`
}
