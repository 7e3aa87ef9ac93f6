package account

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/storefront-ledger/internal/domain/shared"
)

// Type is the accounting classification of an account
type Type string

const (
	TypeAsset     Type = "asset"
	TypeLiability Type = "liability"
	TypeEquity    Type = "equity"
	TypeRevenue   Type = "revenue"
	TypeExpense   Type = "expense"
)

// Types lists account types in chart order
var Types = []Type{TypeAsset, TypeLiability, TypeEquity, TypeRevenue, TypeExpense}

func (t Type) IsValid() bool {
	return t.Rank() >= 0
}

// Rank is the position of the type in chart order, -1 when unknown
func (t Type) Rank() int {
	for i, known := range Types {
		if t == known {
			return i
		}
	}
	return -1
}

// IsDebitNormal reports whether debits increase accounts of this type
func (t Type) IsDebitNormal() bool {
	return t == TypeAsset || t == TypeExpense
}

// SignedAmount returns the balance change caused by a debit (debit=true) or credit of amount
func (t Type) SignedAmount(debit bool, amount int64) int64 {
	if debit == t.IsDebitNormal() {
		return amount
	}
	return -amount
}

// SubType marks system-managed accounts the posting rules rely on
type SubType string

const (
	SubTypeNone                SubType = ""
	SubTypeCash                SubType = "cash"
	SubTypeAccountsReceivable  SubType = "accounts_receivable"
	SubTypeInventory           SubType = "inventory"
	SubTypeAccountsPayable     SubType = "accounts_payable"
	SubTypeSalesTaxPayable     SubType = "sales_tax_payable"
	SubTypeStoreCreditPayable  SubType = "store_credit_payable"
	SubTypeOwnerEquity         SubType = "owner_equity"
	SubTypeSalesRevenue        SubType = "sales_revenue"
	SubTypeCOGS                SubType = "cogs"
	SubTypeInventoryAdjustment SubType = "inventory_adjustment"
)

var subTypeTypes = map[SubType]Type{
	SubTypeCash:                TypeAsset,
	SubTypeAccountsReceivable:  TypeAsset,
	SubTypeInventory:           TypeAsset,
	SubTypeAccountsPayable:     TypeLiability,
	SubTypeSalesTaxPayable:     TypeLiability,
	SubTypeStoreCreditPayable:  TypeLiability,
	SubTypeOwnerEquity:         TypeEquity,
	SubTypeSalesRevenue:        TypeRevenue,
	SubTypeCOGS:                TypeExpense,
	SubTypeInventoryAdjustment: TypeExpense,
}

// ExpectedType returns the account type a system subtype must carry
func (s SubType) ExpectedType() (Type, bool) {
	t, ok := subTypeTypes[s]
	return t, ok
}

// Account is one line of the chart of accounts. Balance is kept in cents,
// positive on the normal side of the account type.
type Account struct {
	ID            uuid.UUID `json:"id"`
	Number        string    `json:"number"`
	Name          string    `json:"name"`
	Type          Type      `json:"type"`
	SubType       SubType   `json:"sub_type,omitempty"`
	IsDebitNormal bool      `json:"is_debit_normal"`
	Balance       int64     `json:"balance"`
	Description   string    `json:"description"`
	Version       int       `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewAccount validates the definition and returns an account with a zero balance
func NewAccount(number, name string, typ Type, subType SubType, description string) (*Account, error) {
	number = strings.TrimSpace(number)
	name = strings.TrimSpace(name)

	if number == "" {
		return nil, shared.ValidationError{Field: "number", Reason: "cannot be empty"}
	}
	if name == "" {
		return nil, shared.ValidationError{Field: "name", Reason: "cannot be empty"}
	}
	if !typ.IsValid() {
		return nil, shared.ValidationError{Field: "type", Reason: "unknown account type " + string(typ)}
	}
	if subType != SubTypeNone {
		expected, ok := subType.ExpectedType()
		if !ok {
			return nil, shared.ValidationError{Field: "sub_type", Reason: "unknown sub type " + string(subType)}
		}
		if expected != typ {
			return nil, shared.ValidationError{Field: "sub_type", Reason: string(subType) + " requires type " + string(expected)}
		}
	}

	now := time.Now().UTC()
	return &Account{
		ID:            uuid.New(),
		Number:        number,
		Name:          name,
		Type:          typ,
		SubType:       subType,
		IsDebitNormal: typ.IsDebitNormal(),
		Description:   description,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// IsSystem reports whether the account is protected from deletion
func (a *Account) IsSystem() bool {
	return a.SubType != SubTypeNone
}

// Patch lists the editable fields; nil fields are left untouched
type Patch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Number      *string `json:"number,omitempty"`
	Type        *Type   `json:"type,omitempty"`
}

// ApplyPatch edits the account in place. hasHistory tells whether journal lines
// already reference the account.
func (a *Account) ApplyPatch(p Patch, hasHistory bool) error {
	if p.Type != nil && *p.Type != a.Type {
		return shared.ConflictError{Resource: "account", Reason: "type cannot change after creation"}
	}

	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return shared.ValidationError{Field: "name", Reason: "cannot be empty"}
		}
		a.Name = name
	}

	if p.Number != nil {
		number := strings.TrimSpace(*p.Number)
		if number == "" {
			return shared.ValidationError{Field: "number", Reason: "cannot be empty"}
		}
		if number != a.Number {
			if hasHistory {
				return shared.ConflictError{Resource: "account", Reason: "number cannot change once journal lines reference the account"}
			}
			a.Number = number
		}
	}

	if p.Description != nil {
		a.Description = *p.Description
	}

	a.UpdatedAt = time.Now().UTC()
	a.Version++
	return nil
}
